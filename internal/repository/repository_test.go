package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErr(t *testing.T) {
	if mapErr(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if !errors.Is(mapErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound) {
		t.Error("no rows should map to ErrNotFound")
	}
	if !errors.Is(mapErr(&pgconn.PgError{Code: "23505"}), ErrDuplicate) {
		t.Error("unique violation should map to ErrDuplicate")
	}
	other := &pgconn.PgError{Code: "23503"}
	if got := mapErr(other); got != other {
		t.Errorf("other errors pass through, got %v", got)
	}
}

func TestTotalWithdrawnSQL_CountsCompletedNet(t *testing.T) {
	if !strings.Contains(totalWithdrawnSQL, "SUM(net_amount)") {
		t.Errorf("total must sum the net paid out: %s", totalWithdrawnSQL)
	}
	if !strings.Contains(totalWithdrawnSQL, "status = 'completed'") || strings.Contains(totalWithdrawnSQL, "approved") {
		t.Errorf("only completed payouts count: %s", totalWithdrawnSQL)
	}
}
