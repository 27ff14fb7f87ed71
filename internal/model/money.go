// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Money は小数第2位までの固定小数点金額を表す。
// 内部表現は最小単位（1/100）のint64で、浮動小数点誤差なしに
// 厳密な等値比較ができる。価格の保存・比較はすべてこの型で行う。
type Money int64

// ParseMoney は"1234.56"形式の10進文字列をMoneyに変換する。
// 小数部が1桁の場合は0埋め、3桁以上の場合は四捨五入する。
// 数値として解釈できない場合はエラーを返す。
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if idx := strings.Index(s, "."); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer part %q: %w", intPart, err)
	}

	// 小数部は2桁に正規化する。3桁目で四捨五入。
	var cents int64
	if fracPart != "" {
		if _, err := strconv.ParseUint(fracPart, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid fractional part %q: %w", fracPart, err)
		}
		switch {
		case len(fracPart) == 1:
			cents = int64(fracPart[0]-'0') * 10
		case len(fracPart) == 2:
			cents, _ = strconv.ParseInt(fracPart, 10, 64)
		default:
			cents, _ = strconv.ParseInt(fracPart[:2], 10, 64)
			if fracPart[2] >= '5' {
				cents++
			}
		}
	}

	m := Money(units*100 + cents)
	if neg {
		m = -m
	}
	return m, nil
}

// MoneyFromCents は最小単位の整数値からMoneyを生成する。
func MoneyFromCents(cents int64) Money {
	return Money(cents)
}

// Cents は最小単位の整数値を返す。DBカラムへの保存に使用する。
func (m Money) Cents() int64 {
	return int64(m)
}

// String は"1234.56"形式の10進文字列を返す。
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Percent は小数第2位までの固定小数点パーセント値を表す。
// 内部表現は1/100パーセント単位のint64（例: -10.00% は -1000）。
type Percent int64

// PercentChange は旧価格から新価格への変化率を計算する。
// (new-old)/old*100 を固定小数点で求め、小数第3位で四捨五入する。
// old=0 の場合は変化率が定義できないためnilを返す。
func PercentChange(old, new Money) *Percent {
	if old == 0 {
		return nil
	}

	diff := int64(new) - int64(old)
	base := int64(old)
	if base < 0 {
		base = -base
	}

	// diff/base*10000 を整数演算で四捨五入する。
	num := diff * 10000
	half := base / 2
	if num < 0 {
		half = -half
	}
	p := Percent((num + half) / base)
	return &p
}

// String は"-10.00"形式の10進文字列を返す。
func (p Percent) String() string {
	v := int64(p)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
