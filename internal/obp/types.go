package obp

// Bank is a bank entry from the upstream list endpoint. Consumed opaquely;
// only the ID is interpreted by this client.
type Bank struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	FullName  string `json:"full_name"`
}

// RawAccount is an account as the upstream returns it, before transformation
// into a display record.
type RawAccount struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Type           string    `json:"type"`
	Balance        RawAmount `json:"balance"`
	ViewsAvailable []RawView `json:"views_available"`
}

// RawView is an upstream access scope for reading an account's transactions.
type RawView struct {
	ID          string `json:"id"`
	ShortName   string `json:"short_name"`
	IsPublic    bool   `json:"is_public"`
	Description string `json:"description"`
}

// RawAmount is the upstream money representation: a decimal string plus an
// ISO currency code.
type RawAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// RawTransaction is a transaction as the upstream returns it.
type RawTransaction struct {
	ID           string          `json:"id"`
	Details      RawTxDetails    `json:"details"`
	OtherAccount RawOtherAccount `json:"other_account"`
}

// RawTxDetails carries the transaction value, timestamps, and free-text
// description used by the category classifier.
type RawTxDetails struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Posted      string    `json:"posted"`
	Completed   string    `json:"completed"`
	Value       RawAmount `json:"value"`
	NewBalance  RawAmount `json:"new_balance"`
}

// RawOtherAccount identifies the counterparty of a transaction.
type RawOtherAccount struct {
	ID     string    `json:"id"`
	Holder RawHolder `json:"holder"`
}

// RawHolder is the counterparty account holder.
type RawHolder struct {
	Name      string `json:"name"`
	IsAlias   bool   `json:"is_alias"`
	AliasName string `json:"alias_name"`
}

// ProbeResult is the response shape of the probe and refresh endpoints.
type ProbeResult struct {
	Success       bool `json:"success"`
	Authenticated bool `json:"authenticated"`
}
