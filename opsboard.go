// Package opsboard provides the data pipeline behind an operational
// spreadsheet dashboard.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/opsboard/engine"
//	    "github.com/spektr-org/opsboard/helpers"
//	    "github.com/spektr-org/opsboard/schema"
//	)
//
//	wb, err := helpers.LoadFile("frota.xlsx")
//	cls, table := schema.Classify(wb.First())
//
//	b := engine.NewBuilder(table, cls)
//	if err := b.Select("Operador", "Ana", "Bruno"); err != nil { ... }
//	if err := b.Between("Data Operação", "2024-01-01", "2024-01-31"); err != nil { ... }
//
//	snap, err := engine.Execute(table, cls, b.Build(), engine.WithPreview(20))
//
// The classifier assigns column roles, the builder turns user selections
// into a FilterSpec, the executor materializes a filtered view and the
// metric functions compute KPIs, group summaries and maintenance alerts.
// Rendering (charts, maps, widgets) is left to the consumer: the engine
// only returns render-ready data.
//
// The session, server and cli packages wrap the pipeline in a stateful
// session (sheet, filters, derived columns, favorites), a gin HTTP API and
// a cobra command line.
package opsboard
