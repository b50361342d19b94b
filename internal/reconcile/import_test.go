package reconcile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybooks/tally/internal/model"
)

func TestStatementParser_SignedAmountColumn(t *testing.T) {
	csvData := "Date,Description,Amount\n" +
		"2025-06-01,Client payment,1523.47\n" +
		"2025-06-03,Office supplies,-45.20\n"

	txns, err := (&StatementParser{}).Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, model.TypeCredit, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(dec("1523.47")))
	assert.Equal(t, "Client payment", txns[0].Description)
	assert.Equal(t, model.MatchStatusUnmatched, txns[0].MatchStatus)

	assert.Equal(t, model.TypeDebit, txns[1].Type)
	assert.True(t, txns[1].Amount.Equal(dec("45.20")), "negative amounts become positive debits, got %s", txns[1].Amount)
}

func TestStatementParser_SplitDebitCreditColumns(t *testing.T) {
	csvData := "Posted Date,Memo,Debit,Credit\n" +
		"06/01/2025,Software subscription,29.99,\n" +
		"06/02/2025,Invoice settlement,,800.00\n"

	txns, err := (&StatementParser{}).Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, model.TypeDebit, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(dec("29.99")))
	assert.Equal(t, "Software subscription", txns[0].Description, "Memo is a description synonym")

	assert.Equal(t, model.TypeCredit, txns[1].Type)
	assert.True(t, txns[1].Amount.Equal(dec("800.00")))
	assert.Equal(t, 2, txns[1].Date.Day())
}

func TestStatementParser_DropsUnusableRows(t *testing.T) {
	csvData := "Date,Description,Amount\n" +
		"2025-06-01,Zero row,0.00\n" +
		"2025-06-02,Junk amount,n/a\n" +
		"not-a-date,Bad date,50.00\n" +
		"2025-06-04,Keeper,100.00\n"

	txns, err := (&StatementParser{}).Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txns, 1, "zero, unparsable and undated rows are filtered")
	assert.Equal(t, "Keeper", txns[0].Description)
}

func TestStatementParser_StripsCurrencyFormatting(t *testing.T) {
	csvData := "Date,Description,Amount\n" +
		"2025-06-01,Big payment,\"$1,523.47\"\n" +
		"2025-06-02,Euro charge,€-45.20\n"

	txns, err := (&StatementParser{}).Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Equal(dec("1523.47")))
	assert.True(t, txns[1].Amount.Equal(dec("45.20")))
	assert.Equal(t, model.TypeDebit, txns[1].Type)
}

func TestStatementParser_HeaderOnly(t *testing.T) {
	txns, err := (&StatementParser{}).Parse(strings.NewReader("Date,Description,Amount\n"))
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestStatementParser_MissingColumns(t *testing.T) {
	_, err := (&StatementParser{}).Parse(strings.NewReader("Description,Amount\nx,5\n"))
	require.Error(t, err, "no date column")

	_, err = (&StatementParser{}).Parse(strings.NewReader("Date,Description\n2025-06-01,x\n"))
	require.Error(t, err, "no amount, debit or credit column")
}

func TestStatementParser_RawPreservesSourceRow(t *testing.T) {
	csvData := "Date,Description,Amount,Reference\n" +
		"2025-06-01,Payment,100.00,TXN-9981\n"

	txns, err := (&StatementParser{}).Parse(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Contains(t, string(txns[0].Raw), "TXN-9981", "unmapped columns survive in the raw snapshot")
}

func TestImportStatement_PersistsRows(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	csvData := "Date,Description,Amount\n" +
		"2025-06-01,Payment,100.00\n" +
		"2025-06-02,Refund,-20.00\n"

	n, err := svc.ImportStatement(ctx, strings.NewReader(csvData), "generic", DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := st.BankTransactionsByStatus(ctx, model.MatchStatusUnmatched)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestImportStatement_UnknownFormat(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ImportStatement(context.Background(), strings.NewReader(""), "ofx", DefaultRegistry())
	require.Error(t, err)
}
