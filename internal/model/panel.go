// Package model defines the domain types shared across pipeline stages.
package model

// PanelRow is one customer-month observation of the synthetic panel.
// Rows are immutable once generated; the panel holds exactly one row per
// (customer, month) pair.
type PanelRow struct {
	CustomerID       int
	Month            int
	Age              int
	Income           float64
	Balance          float64
	CardSpend        float64
	PixCount         int
	AppSessions      int
	CreditLimit      float64
	Utilization      float64
	LatePayment      int
	UsesCard         int
	UsesCredit       int
	DigitalActivity  float64
	AdoptInvestment  int
	TimeToInvestment int
	EventInvestment  int
	FirstAdoptMonth  int
}

// Adopted reports whether this customer's adoption event was observed within
// the panel window. The flag is repeated on every row of the customer.
func (r PanelRow) Adopted() bool {
	return r.EventInvestment == 1
}
