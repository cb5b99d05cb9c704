package repository

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// keywordSearch 描述一次跨普通列与 JSON 键的模糊搜索
type keywordSearch struct {
	Columns  []string
	JSONKeys map[string][]string
}

// 合作方搜索：姓名、邮箱、电话以及银行信息中的户名与 IBAN
var partnerKeywordSearch = keywordSearch{
	Columns:  []string{"name", "email", "phone"},
	JSONKeys: map[string][]string{"bank_details": {"account_holder", "iban"}},
}

func isPostgres(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	switch strings.ToLower(db.Dialector.Name()) {
	case "postgres", "postgresql":
		return true
	}
	return false
}

func jsonTextExpr(postgres bool, column, key string) string {
	if postgres {
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	}
	return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
}

// targets 返回参与匹配的 SQL 表达式，JSON 列按列名排序保证输出稳定
func (s keywordSearch) targets(postgres bool) []string {
	out := make([]string, 0, len(s.Columns)+2*len(s.JSONKeys))
	for _, column := range s.Columns {
		if column = strings.TrimSpace(column); column != "" {
			out = append(out, column)
		}
	}
	jsonColumns := make([]string, 0, len(s.JSONKeys))
	for column := range s.JSONKeys {
		jsonColumns = append(jsonColumns, column)
	}
	sort.Strings(jsonColumns)
	for _, column := range jsonColumns {
		for _, key := range s.JSONKeys[column] {
			out = append(out, jsonTextExpr(postgres, column, key))
		}
	}
	return out
}

// Expr 生成 OR 连接的 LIKE 条件；postgres 下使用 ILIKE 忽略大小写
func (s keywordSearch) Expr(db *gorm.DB, keyword string) clause.Expr {
	postgres := isPostgres(db)
	operator := "LIKE"
	if postgres {
		operator = "ILIKE"
	}
	targets := s.targets(postgres)
	parts := make([]string, len(targets))
	vars := make([]interface{}, len(targets))
	pattern := "%" + keyword + "%"
	for i, target := range targets {
		parts[i] = target + " " + operator + " ?"
		vars[i] = pattern
	}
	return clause.Expr{SQL: "(" + strings.Join(parts, " OR ") + ")", Vars: vars}
}
