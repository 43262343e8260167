package hostbench

import "fmt"

const sampleMsg = "host: %s, max: %v, min: %v, minute: %s, buckets: %d, elapsed: %.2fms"

// FormatSample renders the first bucket of s next to its timing.
func FormatSample(s TimingSample) string {
	if len(s.Buckets) == 0 {
		return fmt.Sprintf("host: %s, window: %s, buckets: 0, elapsed: %.2fms", s.Unit.Host, s.Window, s.Milliseconds())
	}

	b := s.Buckets[0]

	return fmt.Sprintf(sampleMsg, s.Unit.Host, b.Max, b.Min, b.Minute.Format(DateTimeLayout), len(s.Buckets), s.Milliseconds())
}

func describe(s TimingSample) string {
	return fmt.Sprintf("query time: %.2fms host: %s, start_time: %s, end_time: %s",
		s.Milliseconds(), s.Unit.Host, s.Window.Start.Format(DateTimeLayout), s.Window.End.Format(DateTimeLayout))
}

const resultMsg = `#summary:
run_id:	%s
total_count:	%d
exec_count:	%d
failed_count:	%d
parse_failure:	%d
run_time:	%s
#durations:
total:	%.2fms
min:	%.2fms
max:	%.2fms
mean:	%.2fms
median:	%.2fms
std_dev:	%.2fms
95th:	%.2fms
99th:	%.2fms
#min and max queries:
fastest:	%s
slowest:	%s
`

const emptyMsg = `#summary:
run_id:	%s
total_count:	%d
exec_count:	0
failed_count:	%d
parse_failure:	%d
run_time:	%s
`

// FormatReport renders the summary block of r. Without a summary only the
// counts are rendered.
func FormatReport(r *Report) string {
	failed := len(r.Failures)
	total := len(r.Samples) + failed + r.ParseFailures

	if r.Summary == nil {
		return fmt.Sprintf(emptyMsg, r.RunID, total, failed, r.ParseFailures, r.Elapsed)
	}

	s := r.Summary

	return fmt.Sprintf(
		resultMsg,
		r.RunID,
		total,
		s.Count,
		failed,
		r.ParseFailures,
		r.Elapsed,
		s.Sum,
		s.Min,
		s.Max,
		s.Mean,
		s.Median,
		s.StdDev,
		s.Percentile95th,
		s.Percentile99th,
		describe(s.Fastest),
		describe(s.Slowest),
	)
}
