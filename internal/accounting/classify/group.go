package classify

// Section is the report side a group belongs to.
type Section int

const (
	SectionOther Section = iota
	SectionLiabilities
	SectionAssets
	SectionIncome
	SectionExpenses
)

// String implements fmt.Stringer.
func (s Section) String() string {
	switch s {
	case SectionLiabilities:
		return "Liabilities"
	case SectionAssets:
		return "Assets"
	case SectionIncome:
		return "Income"
	case SectionExpenses:
		return "Expenses"
	default:
		return "Other"
	}
}

// DebitNatural reports whether a debit balance is the natural balance of the section.
func (s Section) DebitNatural() bool {
	return s == SectionAssets || s == SectionExpenses || s == SectionOther
}

// BalanceSheet reports whether the section appears on the balance sheet.
func (s Section) BalanceSheet() bool {
	return s == SectionLiabilities || s == SectionAssets
}

// Group is a fixed report group. The declaration order is the trial balance
// display order.
type Group int

const (
	CapitalAccount Group = iota
	CurrentLiabilities
	Loans
	SundryCreditors
	DutiesAndTaxes
	Provisions
	FixedAssets
	CurrentAssets
	StockInHand
	SundryDebtors
	CashInHand
	BankAccounts
	Deposits
	SalesAccounts
	DirectIncomes
	IndirectIncomes
	PurchaseAccounts
	DirectExpenses
	IndirectExpenses
	Miscellaneous

	groupCount
)

var groupNames = [groupCount]string{
	CapitalAccount:     "Capital Account",
	CurrentLiabilities: "Current Liabilities",
	Loans:              "Loans (Liability)",
	SundryCreditors:    "Sundry Creditors",
	DutiesAndTaxes:     "Duties & Taxes",
	Provisions:         "Provisions",
	FixedAssets:        "Fixed Assets",
	CurrentAssets:      "Current Assets",
	StockInHand:        "Stock-in-Hand",
	SundryDebtors:      "Sundry Debtors",
	CashInHand:         "Cash-in-Hand",
	BankAccounts:       "Bank Accounts",
	Deposits:           "Deposits (Asset)",
	SalesAccounts:      "Sales Accounts",
	DirectIncomes:      "Direct Incomes",
	IndirectIncomes:    "Indirect Incomes",
	PurchaseAccounts:   "Purchase Accounts",
	DirectExpenses:     "Direct Expenses",
	IndirectExpenses:   "Indirect Expenses",
	Miscellaneous:      "Miscellaneous",
}

var groupSections = [groupCount]Section{
	CapitalAccount:     SectionLiabilities,
	CurrentLiabilities: SectionLiabilities,
	Loans:              SectionLiabilities,
	SundryCreditors:    SectionLiabilities,
	DutiesAndTaxes:     SectionLiabilities,
	Provisions:         SectionLiabilities,
	FixedAssets:        SectionAssets,
	CurrentAssets:      SectionAssets,
	StockInHand:        SectionAssets,
	SundryDebtors:      SectionAssets,
	CashInHand:         SectionAssets,
	BankAccounts:       SectionAssets,
	Deposits:           SectionAssets,
	SalesAccounts:      SectionIncome,
	DirectIncomes:      SectionIncome,
	IndirectIncomes:    SectionIncome,
	PurchaseAccounts:   SectionExpenses,
	DirectExpenses:     SectionExpenses,
	IndirectExpenses:   SectionExpenses,
	Miscellaneous:      SectionOther,
}

// String returns the display name of the group.
func (g Group) String() string {
	if !g.Valid() {
		return "Unknown"
	}
	return groupNames[g]
}

// Valid reports whether g is one of the declared groups.
func (g Group) Valid() bool {
	return g >= 0 && g < groupCount
}

// Section returns the report side of the group.
func (g Group) Section() Section {
	if !g.Valid() {
		return SectionOther
	}
	return groupSections[g]
}

// Primary returns the balance sheet group a sub-group rolls into. Cash, bank,
// stock, debtors and deposits are current assets; creditors, duties and
// provisions are current liabilities. Other groups are their own primary.
func (g Group) Primary() Group {
	switch g {
	case StockInHand, SundryDebtors, CashInHand, BankAccounts, Deposits:
		return CurrentAssets
	case SundryCreditors, DutiesAndTaxes, Provisions:
		return CurrentLiabilities
	default:
		return g
	}
}

// Groups returns every group in trial balance order.
func Groups() []Group {
	out := make([]Group, 0, groupCount)
	for g := Group(0); g < groupCount; g++ {
		out = append(out, g)
	}
	return out
}

// TrialBalanceOrder is the display order of the trial balance.
var TrialBalanceOrder = Groups()

// ProfitAndLossOrder lists expense groups before income groups.
var ProfitAndLossOrder = []Group{
	PurchaseAccounts, DirectExpenses, IndirectExpenses,
	SalesAccounts, DirectIncomes, IndirectIncomes,
}

// LiabilitiesOrder is the liabilities side of the balance sheet after roll-up.
var LiabilitiesOrder = []Group{CapitalAccount, Loans, CurrentLiabilities}

// AssetsOrder is the assets side of the balance sheet after roll-up.
var AssetsOrder = []Group{FixedAssets, CurrentAssets}
