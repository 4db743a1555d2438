package dto

// StatusBreakdownResponse counts enquiries per lifecycle status. Counts
// always sum to Total for the applied filter.
type StatusBreakdownResponse struct {
	Total    int           `json:"total"`
	ByStatus []StatusCount `json:"byStatus"`
	Rates    DerivedRates  `json:"rates"`
}

// StatusCount is one status bucket.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DerivedRates carries ratio metrics guarded against zero denominators.
type DerivedRates struct {
	SuccessRate    float64 `json:"successRate"`
	EscalationRate float64 `json:"escalationRate"`
}

// MonthlyTrendResponse reports the trailing calendar months, oldest first.
type MonthlyTrendResponse struct {
	Timezone string               `json:"timezone"`
	Months   []MonthlyTrendBucket `json:"months"`
}

// MonthlyTrendBucket is one calendar month of enquiry creation counts,
// split by outcome group within the bucket.
type MonthlyTrendBucket struct {
	Month    string `json:"month"`
	Total    int    `json:"total"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Pending  int    `json:"pending"`
}

// TopNResponse ranks a dimension by enquiry count.
type TopNResponse struct {
	Dimension string      `json:"dimension"`
	N         int         `json:"n"`
	Entries   []TopNEntry `json:"entries"`
}

// TopNEntry is one ranked group. Ties on count order by ascending name.
type TopNEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
