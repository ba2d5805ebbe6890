package registry

// Wire types for the registry's JSON responses. Only the fields the
// application consumes are declared.

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	CompanyNumber  string   `json:"company_number"`
	CompanyName    string   `json:"company_name"`
	DateOfCreation string   `json:"date_of_creation"`
	SICCodes       []string `json:"sic_codes"`
}

type officersResponse struct {
	Items []officerItem `json:"items"`
}

type officerItem struct {
	Name        string       `json:"name"`
	OfficerRole string       `json:"officer_role"`
	ResignedOn  string       `json:"resigned_on"`
	DateOfBirth *partialDate `json:"date_of_birth"`
}

type pscResponse struct {
	Items []pscItem `json:"items"`
}

type pscItem struct {
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	CeasedOn    string       `json:"ceased_on"`
	DateOfBirth *partialDate `json:"date_of_birth"`
}

type partialDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type profileResponse struct {
	CompanyNumber           string          `json:"company_number"`
	RegisteredOfficeAddress *officeAddress  `json:"registered_office_address"`
	HasInsolvencyHistory    bool            `json:"has_insolvency_history"`
	HasCharges              bool            `json:"has_charges"`
	UndeliverableAddress    bool            `json:"undeliverable_registered_office_address"`
	OfficeInDispute         bool            `json:"registered_office_is_in_dispute"`
	Accounts                *accountsInfo   `json:"accounts"`
	Confirmation            *statementInfo  `json:"confirmation_statement"`
}

type officeAddress struct {
	PostalCode string `json:"postal_code"`
	Postcode   string `json:"postcode"`
}

type accountsInfo struct {
	LastAccounts *lastAccounts `json:"last_accounts"`
	NextAccounts *nextAccounts `json:"next_accounts"`
	Overdue      bool          `json:"overdue"`
}

type lastAccounts struct {
	MadeUpTo    string `json:"made_up_to"`
	PeriodEndOn string `json:"period_end_on"`
}

type nextAccounts struct {
	DueOn   string `json:"due_on"`
	NextDue string `json:"next_due"`
	Overdue bool   `json:"overdue"`
}

type statementInfo struct {
	LastMadeUpTo string `json:"last_made_up_to"`
	NextDue      string `json:"next_due"`
	Overdue      bool   `json:"overdue"`
}

type filingHistoryResponse struct {
	Items []filingItem `json:"items"`
}

type filingItem struct {
	Date        string       `json:"date"`
	Description string       `json:"description"`
	Links       *filingLinks `json:"links"`
}

type filingLinks struct {
	DocumentMetadata string `json:"document_metadata"`
}

type chargesResponse struct {
	Items []chargeItem `json:"items"`
}

type chargeItem struct {
	Status string `json:"status"`
}

type documentMetadata struct {
	Resources map[string]documentResource `json:"resources"`
}

type documentResource struct {
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
}
