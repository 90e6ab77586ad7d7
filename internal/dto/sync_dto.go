package dto

// SyncResult summarizes one offline replay pass.
type SyncResult struct {
	Attempted int      `json:"attempted"`
	Synced    int      `json:"synced"`
	Remaining int      `json:"remaining"`
	Errors    []string `json:"errors,omitempty"`
}

// QueueEntry is one offline invoice as listed for the terminal UI.
type QueueEntry struct {
	InvoiceID    string `json:"invoiceId"`
	OnHandSynced bool   `json:"onHandSynced"`
	Attempts     int    `json:"attempts"`
	LastError    string `json:"lastError,omitempty"`
	QueuedAt     string `json:"queuedAt"`
}
