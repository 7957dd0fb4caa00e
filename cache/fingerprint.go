package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/spektr-org/opsboard/dataset"
)

// TableFingerprint hashes the column names and every cell of view. Two
// views with the same content hash equal regardless of where they were
// loaded from.
func TableFingerprint(view dataset.RecordView) uint64 {
	d := xxhash.New()
	cols := view.Columns()
	var buf [8]byte

	for _, c := range cols {
		_, _ = d.WriteString(c)
		_, _ = d.Write([]byte{0})
	}
	for i := 0; i < view.Len(); i++ {
		for _, c := range cols {
			v := view.Value(i, c)
			_, _ = d.Write([]byte{byte(v.Kind)})
			switch v.Kind {
			case dataset.KindNumber:
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Num))
				_, _ = d.Write(buf[:])
			case dataset.KindTime:
				binary.LittleEndian.PutUint64(buf[:], uint64(v.Time.UnixNano()))
				_, _ = d.Write(buf[:])
			case dataset.KindString:
				_, _ = d.WriteString(v.Str)
				_, _ = d.Write([]byte{0})
			}
		}
	}
	return d.Sum64()
}

// Key builds a cache key from a kind, a table fingerprint and any
// JSON-encodable request parts (filter spec, options).
func Key(kind string, table uint64, parts ...interface{}) (string, error) {
	d := xxhash.New()
	for _, p := range parts {
		data, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("cache key: %w", err)
		}
		_, _ = d.Write(data)
		_, _ = d.Write([]byte{0})
	}
	return kind + ":" + strconv.FormatUint(table, 16) + ":" + strconv.FormatUint(d.Sum64(), 16), nil
}
