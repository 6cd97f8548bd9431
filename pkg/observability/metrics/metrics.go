package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	runsStarted      atomic.Int64
	runsFailed       atomic.Int64
	rowsRead         atomic.Int64
	rowsRejected     atomic.Int64
	documentsMapped  atomic.Int64
	filesWritten     atomic.Int64
	filesInvalid     atomic.Int64
	lastRunDocuments atomic.Int64
	lastRunSeconds   atomic.Int64
)

func ObserveRunStarted() {
	runsStarted.Add(1)
}

func ObserveRunFailed() {
	runsFailed.Add(1)
}

// ObserveRun records the counts of a finished run.
func ObserveRun(read, rejected, mapped, written, invalid int, seconds float64) {
	rowsRead.Add(int64(read))
	rowsRejected.Add(int64(rejected))
	documentsMapped.Add(int64(mapped))
	filesWritten.Add(int64(written))
	filesInvalid.Add(int64(invalid))
	lastRunDocuments.Store(int64(mapped))
	lastRunSeconds.Store(int64(seconds * 1000))
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	counter(w, "erker_pipeline_runs_started_total", "Number of pipeline runs started.", runsStarted.Load())
	counter(w, "erker_pipeline_runs_failed_total", "Number of pipeline runs that aborted.", runsFailed.Load())
	counter(w, "erker_pipeline_rows_read_total", "Number of registry rows read.", rowsRead.Load())
	counter(w, "erker_pipeline_rows_rejected_total", "Number of registry rows that failed to parse or map.", rowsRejected.Load())
	counter(w, "erker_pipeline_documents_mapped_total", "Number of phenopackets produced.", documentsMapped.Load())
	counter(w, "erker_pipeline_files_written_total", "Number of phenopacket files written.", filesWritten.Load())
	counter(w, "erker_pipeline_files_invalid_total", "Number of phenopacket files that failed validation.", filesInvalid.Load())

	fmt.Fprintf(w, "# HELP erker_pipeline_last_run_documents Number of phenopackets produced by the latest run.\n")
	fmt.Fprintf(w, "# TYPE erker_pipeline_last_run_documents gauge\n")
	fmt.Fprintf(w, "erker_pipeline_last_run_documents %d\n", lastRunDocuments.Load())

	fmt.Fprintf(w, "# HELP erker_pipeline_last_run_duration_seconds Duration of the latest run.\n")
	fmt.Fprintf(w, "# TYPE erker_pipeline_last_run_duration_seconds gauge\n")
	fmt.Fprintf(w, "erker_pipeline_last_run_duration_seconds %.3f\n", float64(lastRunSeconds.Load())/1000)
}

func counter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
