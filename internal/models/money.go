package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money 统一金额类型（零小数位货币，四舍五入到整数）
type Money struct {
	decimal.Decimal
}

// NewMoney 从整数金额创建
func NewMoney(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

// NewMoneyFromDecimal 从 decimal 创建金额（0.5 远离零进位）
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(0)}
}

// MarshalJSON 输出整数字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(0).StringFixed(0))
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(0)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Decimal = d.Round(0)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(0).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(0)
	return nil
}

// String 返回整数格式
func (m Money) String() string {
	return m.Decimal.Round(0).StringFixed(0)
}
