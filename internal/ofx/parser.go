package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/engine"
)

// ImportAuthor is recorded as the creator of imported expenses.
const ImportAuthor = "Import"

// importNamespace seeds the deterministic expense ids of imported rows.
var importNamespace = uuid.MustParse("5b0f5d0e-7a43-4c1e-9d55-0c8f3f2a9e61")

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser turns OFX/QFX statements into expense entry forms. A Parser
// remembers every transaction it has returned, so the same transaction
// appearing in several files is only imported once.
type Parser struct {
	seen map[string]struct{}
	mu   sync.Mutex
}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{seen: make(map[string]struct{})}
}

// ExpenseID returns the id an imported transaction is stored under.
func ExpenseID(accountID, fitID string) uuid.UUID {
	return uuid.NewSHA1(importNamespace, []byte(accountID+"/"+fitID))
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of an opening tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns one form per debit. Credits
// and transactions this parser has already returned are skipped. The forms
// carry no category.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]engine.Form, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var forms []engine.Form
	var statements, skipped int

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		statements++
		got, dropped := p.convertTransactions(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))
		forms = append(forms, got...)
		skipped += dropped
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		statements++
		got, dropped := p.convertTransactions(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))
		forms = append(forms, got...)
		skipped += dropped
	}

	slog.InfoContext(ctx, "Parsed OFX file",
		"expenses", len(forms),
		"skipped", skipped,
		"statements", statements)

	return forms, nil
}

func (p *Parser) convertTransactions(txns []ofxgo.Transaction, accountID string) ([]engine.Form, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	forms := make([]engine.Form, 0, len(txns))
	skipped := 0
	for _, tx := range txns {
		amount, _ := tx.TrnAmt.Float64()
		if amount >= 0 {
			skipped++
			continue
		}

		key := accountID + "/" + string(tx.FiTID)
		if _, dup := p.seen[key]; dup {
			slog.Debug("Skipping duplicate OFX transaction", "fitid", tx.FiTID, "account", accountID)
			skipped++
			continue
		}
		p.seen[key] = struct{}{}

		forms = append(forms, engine.Form{
			ExpenseID:   ExpenseID(accountID, string(tx.FiTID)),
			Name:        extractMerchantName(tx),
			Amount:      strconv.FormatFloat(-amount, 'f', -1, 64),
			CreatedBy:   ImportAuthor,
			CreatedDate: tx.DtPosted.UTC().Truncate(time.Millisecond),
		})
	}
	return forms, skipped
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is usually cleaner than NAME.
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// "MM/DD " date prefix
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	default:
		return false
	}
}
