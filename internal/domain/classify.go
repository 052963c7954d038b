package domain

// AnomalyLabel classifies a record's TMAX against its baseline.
type AnomalyLabel string

const (
	AboveAverage AnomalyLabel = "Above Average"
	BelowAverage AnomalyLabel = "Below Average"
	Normal       AnomalyLabel = "Normal"
	Unclassified AnomalyLabel = "Unclassified"
)

// BaselineTier says which baseline a classification used.
type BaselineTier string

const (
	TierDaily   BaselineTier = "daily"
	TierMonthly BaselineTier = "monthly"
	TierNone    BaselineTier = "none"
)

// Classification is the outcome of Classify.
type Classification struct {
	Label AnomalyLabel
	Tier  BaselineTier
	// Delta is TMAX minus the baseline mean; nil when unclassified.
	Delta *float64
	// MonthlyLabel compares against the monthly baseline regardless of whether
	// a daily baseline exists.
	MonthlyLabel AnomalyLabel
}

// ClassifiedRecord is a canonical record with its classification attached.
type ClassifiedRecord struct {
	CanonicalRecord
	Anomaly Classification
}

// Resolve picks the baseline for a (month, day): daily if present, otherwise
// monthly, otherwise ErrUnresolvableBaseline.
func (b Baselines) Resolve(md MonthDay) (BaselineEntry, BaselineTier, error) {
	if e, ok := b.Daily[md]; ok && e.SampleCount > 0 {
		return e, TierDaily, nil
	}
	if e, ok := b.Monthly[md.Month]; ok && e.SampleCount > 0 {
		return e, TierMonthly, nil
	}
	return BaselineEntry{}, TierNone, ErrUnresolvableBaseline
}

// Classify labels one record. It depends only on its arguments.
func Classify(rec CanonicalRecord, b Baselines, threshold float64) Classification {
	c := Classification{Label: Unclassified, Tier: TierNone, MonthlyLabel: Unclassified}
	if rec.TempMax == nil {
		return c
	}

	md := MonthDayOf(rec.Date)
	if e, ok := b.Monthly[md.Month]; ok && e.SampleCount > 0 {
		c.MonthlyLabel = labelFor(*rec.TempMax-e.MeanTempMax, threshold)
	}

	entry, tier, err := b.Resolve(md)
	if err != nil {
		return c
	}
	delta := *rec.TempMax - entry.MeanTempMax
	c.Label = labelFor(delta, threshold)
	c.Tier = tier
	c.Delta = &delta
	return c
}

// ClassifyAll labels every record in order.
func ClassifyAll(recs []CanonicalRecord, b Baselines, threshold float64) []ClassifiedRecord {
	out := make([]ClassifiedRecord, len(recs))
	for i, rec := range recs {
		out[i] = ClassifiedRecord{CanonicalRecord: rec, Anomaly: Classify(rec, b, threshold)}
	}
	return out
}

func labelFor(delta, threshold float64) AnomalyLabel {
	switch {
	case delta >= threshold:
		return AboveAverage
	case delta <= -threshold:
		return BelowAverage
	default:
		return Normal
	}
}
