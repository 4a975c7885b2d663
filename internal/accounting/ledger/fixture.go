package ledger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const fixtureDateLayout = "2006-01-02"

// Fixture is the YAML layout of an offline ledger file.
type Fixture struct {
	Company     int64               `yaml:"company"`
	Accounts    []Account           `yaml:"accounts"`
	Entries     []fixtureEntry      `yaml:"entries"`
	Settlements []fixtureSettlement `yaml:"settlements"`
}

type fixtureEntry struct {
	ID    int64         `yaml:"id"`
	Date  string        `yaml:"date"`
	State EntryState    `yaml:"state"`
	Type  DocumentType  `yaml:"type"`
	Lines []fixtureLine `yaml:"lines"`
}

type fixtureLine struct {
	ID      int64  `yaml:"id"`
	Account int64  `yaml:"account"`
	Debit   string `yaml:"debit"`
	Credit  string `yaml:"credit"`
}

type fixtureSettlement struct {
	Debit  int64  `yaml:"debit"`
	Credit int64  `yaml:"credit"`
	Amount string `yaml:"amount"`
	Date   string `yaml:"date"`
}

// LoadFixtureFile reads a YAML ledger file into a MemorySource.
func LoadFixtureFile(path string) (*MemorySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture decodes a YAML ledger. Entries default to posted journal entries,
// accounts without a company inherit the fixture company and missing ids are
// numbered in file order.
func LoadFixture(r io.Reader) (*MemorySource, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("parse ledger fixture: %w", err)
	}

	src := NewMemorySource()
	for _, acc := range fx.Accounts {
		if acc.CompanyID == 0 {
			acc.CompanyID = fx.Company
		}
		src.AddAccount(acc)
	}

	var nextEntry, nextLine int64
	for _, fe := range fx.Entries {
		if fe.ID == 0 {
			nextEntry++
			fe.ID = nextEntry
		} else if fe.ID > nextEntry {
			nextEntry = fe.ID
		}
		date, err := time.Parse(fixtureDateLayout, fe.Date)
		if err != nil {
			return nil, fmt.Errorf("entry %d: date: %w", fe.ID, err)
		}
		entry := Entry{
			ID:        fe.ID,
			CompanyID: fx.Company,
			Date:      date,
			State:     fe.State,
			Type:      fe.Type,
		}
		if entry.State == "" {
			entry.State = StatePosted
		}
		if entry.Type == "" {
			entry.Type = DocEntry
		}
		for idx, fl := range fe.Lines {
			if fl.ID == 0 {
				nextLine++
				fl.ID = nextLine
			} else if fl.ID > nextLine {
				nextLine = fl.ID
			}
			debit, err := parseAmount(fl.Debit)
			if err != nil {
				return nil, fmt.Errorf("entry %d line %d: debit: %w", fe.ID, idx, err)
			}
			credit, err := parseAmount(fl.Credit)
			if err != nil {
				return nil, fmt.Errorf("entry %d line %d: credit: %w", fe.ID, idx, err)
			}
			entry.Postings = append(entry.Postings, Posting{
				ID:        fl.ID,
				AccountID: fl.Account,
				Debit:     debit,
				Credit:    credit,
			})
		}
		src.AddEntry(entry)
	}

	for idx, fs := range fx.Settlements {
		date, err := time.Parse(fixtureDateLayout, fs.Date)
		if err != nil {
			return nil, fmt.Errorf("settlement %d: date: %w", idx, err)
		}
		amount, err := parseAmount(fs.Amount)
		if err != nil {
			return nil, fmt.Errorf("settlement %d: amount: %w", idx, err)
		}
		src.AddSettlement(Settlement{
			DebitPostingID:  fs.Debit,
			CreditPostingID: fs.Credit,
			Amount:          amount,
			Date:            date,
		})
	}
	return src, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", raw)
	}
	return amount, nil
}
