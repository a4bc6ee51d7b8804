// Package meter converts DMA engine performance counters into
// throughput figures.
//
// Performance runs report their results as hardware cycle counts at
// the [EngineClockHz] engine clock: total clock cycles for the run and
// data cycles during which the datapath moved bytes. This package
// reduces those counters to wall time and [BytesPerSecond] rates for
// presentation.
//
// [PerfThroughput] summarizes a completed run; [Throughput] and
// [CyclesToDuration] are the underlying conversions, usable directly
// for byte-stream measurements that never touch the hardware counters.
package meter
