package domain

// Result is everything a reconciliation run produces.
type Result struct {
	Normalized NormalizeResult
	Baselines  Baselines
	Classified []ClassifiedRecord
	Table      MergedTable
	Quality    QualityReport
}

// LabelCounts tallies primary labels across classified records.
func (r Result) LabelCounts() map[AnomalyLabel]int {
	counts := make(map[AnomalyLabel]int, 4)
	for _, rec := range r.Classified {
		counts[rec.Anomaly.Label]++
	}
	return counts
}

// Reconcile runs the full transform: normalize, build baselines from the
// historical subsequence, classify every record, merge and pivot, then gate.
// Only a ConfigurationError stops it; bad records and missing baselines are
// absorbed into the result.
func Reconcile(params Params, hist []RawHistoricalRecord, rt []RawRealtimeRecord) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	n := NewNormalizer(params)
	n.AddHistorical(hist...)
	n.AddRealtime(rt...)
	return ReconcileNormalized(params, n.Result()), nil
}

// ReconcileNormalized runs every stage after normalization. params must
// already be valid.
func ReconcileNormalized(params Params, normalized NormalizeResult) Result {
	acc := NewBaselineAccumulator()
	acc.Add(normalized.Historical()...)
	baselines := acc.Build(params.MinDailySamples)

	classified := ClassifyAll(normalized.Records, baselines, params.AnomalyThreshold)
	table := MergeAndPivot(classified)

	return Result{
		Normalized: normalized,
		Baselines:  baselines,
		Classified: classified,
		Table:      table,
		Quality:    NewQualityGate(params.Gate).Evaluate(table),
	}
}
