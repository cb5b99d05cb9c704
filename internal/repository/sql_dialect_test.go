package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestJSONTextExpr(t *testing.T) {
	if got := jsonTextExpr(false, "bank_details", "iban"); got != `json_extract(bank_details, '$."iban"')` {
		t.Fatalf("sqlite json expr mismatch: %s", got)
	}
	if got := jsonTextExpr(true, "bank_details", "iban"); got != "(bank_details::jsonb ->> 'iban')" {
		t.Fatalf("postgres json expr mismatch: %s", got)
	}
}

func TestPartnerKeywordSearchExpr(t *testing.T) {
	expr := partnerKeywordSearch.Expr(nil, "ali")
	if len(expr.Vars) != 5 {
		t.Fatalf("vars want 5 got %d", len(expr.Vars))
	}
	if !strings.HasPrefix(expr.SQL, "(name LIKE ? OR email LIKE ?") {
		t.Fatalf("unexpected condition: %s", expr.SQL)
	}
	if !strings.Contains(expr.SQL, `json_extract(bank_details, '$."account_holder"') LIKE ?`) {
		t.Fatalf("condition should search account holder, got %s", expr.SQL)
	}
	for idx, v := range expr.Vars {
		if v != "%ali%" {
			t.Fatalf("vars[%d] want %%ali%% got %v", idx, v)
		}
	}
}

func TestPartnerKeywordSearchMatchesBankDetails(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:keyword_search_%d?mode=memory&cache=shared", 1)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.Exec(`CREATE TABLE partners (name TEXT, email TEXT, phone TEXT, bank_details TEXT)`).Error; err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if err := db.Exec(`INSERT INTO partners VALUES ('Sara', 's@example.com', '', '{"account_holder":"Sara K","iban":"IR0600000000000000000001"}'), ('Reza', 'r@example.com', '', '{}')`).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var names []string
	if err := db.Table("partners").Where(partnerKeywordSearch.Expr(db, "IR06")).Pluck("name", &names).Error; err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(names) != 1 || names[0] != "Sara" {
		t.Fatalf("expected only Sara, got %v", names)
	}
}
