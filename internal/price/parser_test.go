package price

import (
	"testing"

	"github.com/hitoshi/pricewatch/internal/model"
)

// 通貨記号と数値の両方を含む代表的なフォーマットを検証
func TestParse_CurrencyAndPrice(t *testing.T) {
	tests := []struct {
		input        string
		wantCurrency string
		wantPrice    model.Money
	}{
		{"$1,234.56", "$", 123456},
		{"1.234,56 €", "€", 123456},
		{"£99,99", "£", 9999},       // 小数部2桁 -> カンマは小数点
		{"£1,234", "£", 123400},     // 小数部3桁 -> カンマは桁区切り
		{"¥1,980", "¥", 198000},
		{"  $ 42.00  ", "$", 4200},
		{"€5", "€", 500},
		{"Price: $1,299.99 (incl. tax)", "$", 129999},
		{"1.234.567,89 €", "€", 123456789},
		{"$1,234,567.89", "$", 123456789},
	}

	for _, tt := range tests {
		got := Parse(tt.input)
		if got.Currency != tt.wantCurrency {
			t.Errorf("Parse(%q).Currency = %q, want %q", tt.input, got.Currency, tt.wantCurrency)
		}
		if got.Price == nil {
			t.Errorf("Parse(%q).Price = nil, want %v", tt.input, tt.wantPrice)
			continue
		}
		if *got.Price != tt.wantPrice {
			t.Errorf("Parse(%q).Price = %v, want %v", tt.input, *got.Price, tt.wantPrice)
		}
	}
}

// 通貨記号なしでも価格抽出が成功し、Currencyが空になることを検証
func TestParse_NoCurrency(t *testing.T) {
	got := Parse("1,234")
	if got.Currency != "" {
		t.Errorf("Currency = %q, want empty", got.Currency)
	}
	if got.Price == nil || *got.Price != 123400 {
		t.Errorf("Price = %v, want 123400", got.Price)
	}
}

// 数値を含まない入力はPrice=nilになり、エラーにはならないことを検証
func TestParse_NoNumber(t *testing.T) {
	for _, input := range []string{"abc", "", "   ", "Sold out", "£"} {
		got := Parse(input)
		if got.Price != nil {
			t.Errorf("Parse(%q).Price = %v, want nil", input, *got.Price)
		}
	}
}

// 区切り文字のみで数字がない入力も失敗扱いになることを検証
func TestParse_SeparatorsOnly(t *testing.T) {
	got := Parse("...")
	if got.Price != nil {
		t.Errorf("Parse(\"...\").Price = %v, want nil", *got.Price)
	}
}

// Rawフィールドを再パースしても同じ結果になること（冪等性）を検証
func TestParse_Idempotent(t *testing.T) {
	inputs := []string{"$1,234.56", "1.234,56 €", "£99,99", "  ¥1,980  ", "abc"}

	for _, input := range inputs {
		first := Parse(input)
		second := Parse(first.Raw)

		if second.Currency != first.Currency {
			t.Errorf("再パースでCurrencyが変化した: %q -> %q (input=%q)", first.Currency, second.Currency, input)
		}
		if (first.Price == nil) != (second.Price == nil) {
			t.Errorf("再パースでPriceの有無が変化した (input=%q)", input)
			continue
		}
		if first.Price != nil && *first.Price != *second.Price {
			t.Errorf("再パースでPriceが変化した: %v -> %v (input=%q)", *first.Price, *second.Price, input)
		}
		if second.Raw != first.Raw {
			t.Errorf("再パースでRawが変化した: %q -> %q", first.Raw, second.Raw)
		}
	}
}

// 後に現れた区切り文字が小数点になる規則を単体で検証
func TestParse_SeparatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  model.Money
	}{
		{"1.234,56", 123456}, // カンマが後 -> カンマが小数点
		{"1,234.56", 123456}, // ピリオドが後 -> ピリオドが小数点
		{"99,99", 9999},
		{"12.50", 1250},
		{"1234", 123400},
	}

	for _, tt := range tests {
		got := Parse(tt.input)
		if got.Price == nil {
			t.Errorf("Parse(%q).Price = nil, want %v", tt.input, tt.want)
			continue
		}
		if *got.Price != tt.want {
			t.Errorf("Parse(%q).Price = %v, want %v", tt.input, *got.Price, tt.want)
		}
	}
}
