package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expense-saver/internal/engine"
)

const ofxHeader = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
`

// Two purchases, one salary credit and one check.
const sampleBankOFX = ofxHeader + `<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>IDR
<BANKACCTFROM>
<BANKID>014
<ACCTID>8830112233
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000[0:GMT]
<DTEND>20240131000000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105093000[0:GMT]
<TRNAMT>-45000.00
<FITID>BCA20240105A
<NAME>POS PURCHASE INDOMARET KEMANG
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125080000[0:GMT]
<TRNAMT>15000000.00
<FITID>BCA20240125S
<NAME>PAYROLL
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240112190000[0:GMT]
<TRNAMT>-12345.5
<FITID>BCA20240112B
<NAME>PAYMENT
<MEMO>PLN PREPAID TOKEN
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-500000.00
<FITID>BCA20240120C
<CHECKNUM>0042
<NAME>CHECK #0042
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2500000.00
<DTASOF>20240131000000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = ofxHeader + `<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>IDR
<CCACCTFROM>
<ACCTID>4556000011112222
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000[0:GMT]
<DTEND>20240131000000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-186000.00
<FITID>CC20240110
<NAME>TOKOPEDIA*ORDER 88121
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-54990.00
<FITID>CC20240115
<NAME>SPOTIFY P2A1B3
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-240990.00
<DTASOF>20240131000000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "bank statement skips credits", ofxData: sampleBankOFX, expectedCount: 3},
		{name: "credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms, err := NewParser().ParseFile(context.Background(), strings.NewReader(tt.ofxData))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, forms, tt.expectedCount)
		})
	}
}

func TestParseFile_BankForms(t *testing.T) {
	forms, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, forms, 3)

	first := forms[0]
	assert.Equal(t, "INDOMARET KEMANG", first.Name)
	assert.Equal(t, "45000", first.Amount)
	assert.Equal(t, ImportAuthor, first.CreatedBy)
	assert.Equal(t, time.Date(2024, time.January, 5, 9, 30, 0, 0, time.UTC), first.CreatedDate)
	assert.Equal(t, ExpenseID("8830112233", "BCA20240105A"), first.ExpenseID)
	assert.Empty(t, first.CategoryName)

	// Generic NAME falls back to MEMO.
	assert.Equal(t, "PLN PREPAID TOKEN", forms[1].Name)
	assert.Equal(t, "12345.5", forms[1].Amount)
	assert.InDelta(t, 12345.5, engine.ParseAmount(forms[1].Amount), 1e-9)

	assert.Equal(t, "CHECK #0042", forms[2].Name)
	assert.Equal(t, "500000", forms[2].Amount)

	for _, form := range forms {
		form.CategoryName = "Imported"
		assert.True(t, form.Valid(), form.Name)
	}
}

func TestParseFile_DeduplicatesAcrossFiles(t *testing.T) {
	parser := NewParser()
	ctx := context.Background()

	first, err := parser.ParseFile(ctx, strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Len(t, first, 2)

	again, err := parser.ParseFile(ctx, strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Empty(t, again)

	// A fresh parser derives the same ids, so storage absorbs re-imports.
	fresh, err := NewParser().ParseFile(ctx, strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, first[0].ExpenseID, fresh[0].ExpenseID)
	assert.NotEqual(t, fresh[0].ExpenseID, fresh[1].ExpenseID)
}

func TestParseFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseFile(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpenseID(t *testing.T) {
	assert.Equal(t, ExpenseID("a", "1"), ExpenseID("a", "1"))
	assert.NotEqual(t, ExpenseID("a", "1"), ExpenseID("b", "1"))
	assert.NotEqual(t, ExpenseID("a", "1"), ExpenseID("a", "2"))
}

func TestExtractMerchantName(t *testing.T) {
	tests := []struct {
		tx       ofxgo.Transaction
		name     string
		expected string
	}{
		{name: "remove POS prefix", tx: ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"}, expected: "STARBUCKS"},
		{name: "remove DEBIT CARD prefix", tx: ofxgo.Transaction{Name: "DEBIT CARD PURCHASE HERO SUPERMARKET"}, expected: "HERO SUPERMARKET"},
		{name: "strip date prefix", tx: ofxgo.Transaction{Name: "01/15 GRAB*RIDE"}, expected: "GRAB*RIDE"},
		{name: "keep clean name", tx: ofxgo.Transaction{Name: "NETFLIX.COM"}, expected: "NETFLIX.COM"},
		{name: "trim whitespace", tx: ofxgo.Transaction{Name: "  AMAZON.COM  "}, expected: "AMAZON.COM"},
		{
			name:     "prefer payee",
			tx:       ofxgo.Transaction{Name: "DEBIT", Payee: &ofxgo.Payee{Name: "Kopi Kenangan"}},
			expected: "Kopi Kenangan",
		},
		{name: "memo for generic name", tx: ofxgo.Transaction{Name: "purchase", Memo: "GOJEK"}, expected: "GOJEK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractMerchantName(tt.tx))
		})
	}
}

func TestPreprocessOFX(t *testing.T) {
	in := "\n\n  <SEVERITY>Info</SEVERITY>\n<CODE\n"
	out := preprocessOFX(in)
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<CODE>\n", out)
}
