package obp

import "net/url"

// Endpoints holds the API paths the client talks to. The zero value is not
// usable; call DefaultEndpoints and override fields from config as needed.
type Endpoints struct {
	Banks   string
	Probe   string
	Refresh string
	Login   string
	Logout  string
}

// DefaultEndpoints returns the dashboard proxy route layout.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Banks:   "/api/banks",
		Probe:   "/api/auth/verify",
		Refresh: "/api/auth/refresh",
		Login:   "/api/auth/login",
		Logout:  "/api/auth/logout",
	}
}

// Accounts returns the account-list path for a bank.
func (e Endpoints) Accounts(bankID string) string {
	return e.Banks + "/" + url.PathEscape(bankID) + "/accounts"
}

// Transactions returns the transaction-list path for an account under the
// given view.
func (e Endpoints) Transactions(bankID, accountID, viewID string) string {
	return e.Banks + "/" + url.PathEscape(bankID) +
		"/accounts/" + url.PathEscape(accountID) +
		"/" + url.PathEscape(viewID) + "/transactions"
}
