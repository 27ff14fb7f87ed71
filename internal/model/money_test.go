package model

import "testing"

// ParseMoneyが10進文字列を正しく最小単位に変換することを検証
func TestParseMoney(t *testing.T) {
	tests := []struct {
		input string
		want  Money
	}{
		{"1234.56", 123456},
		{"1234", 123400},
		{"0.99", 99},
		{"99.9", 9990},
		{"0", 0},
		{".50", 50},
		{"-12.34", -1234},
		{"1.005", 101},  // 3桁目で四捨五入
		{"1.004", 100},
		{"1.2345", 123}, // 切り捨て方向の丸め
	}

	for _, tt := range tests {
		got, err := ParseMoney(tt.input)
		if err != nil {
			t.Errorf("ParseMoney(%q) がエラーを返した: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMoney(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// 数値として解釈できない入力はエラーになることを検証
func TestParseMoney_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2.3", "12a", "1,234"} {
		if _, err := ParseMoney(input); err == nil {
			t.Errorf("ParseMoney(%q) はエラーを返すべき", input)
		}
	}
}

// Stringが常に小数第2位まで出力することを検証
func TestMoney_String(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{123456, "1234.56"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
	}

	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", tt.m, got, tt.want)
		}
	}
}

// PercentChangeの計算を検証
func TestPercentChange(t *testing.T) {
	tests := []struct {
		name string
		old  Money
		new  Money
		want Percent
	}{
		{"10パーセント下落", 10000, 9000, -1000},
		{"10パーセント上昇", 10000, 11000, 1000},
		{"変化なし", 10000, 10000, 0},
		{"半分", 200, 100, -5000},
		{"端数の丸め", 300, 100, -6667}, // -66.666...% -> -66.67%
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentChange(tt.old, tt.new)
			if got == nil {
				t.Fatal("PercentChange は nil を返してはならない")
			}
			if *got != tt.want {
				t.Errorf("PercentChange(%d, %d) = %d, want %d", tt.old, tt.new, *got, tt.want)
			}
		})
	}
}

// old=0の場合は変化率が未定義（nil）になることを検証
func TestPercentChange_ZeroOld(t *testing.T) {
	if got := PercentChange(0, 100); got != nil {
		t.Errorf("PercentChange(0, 100) = %v, want nil", got)
	}
}

// Percent.Stringの出力形式を検証
func TestPercent_String(t *testing.T) {
	tests := []struct {
		p    Percent
		want string
	}{
		{-1000, "-10.00"},
		{1000, "10.00"},
		{-6667, "-66.67"},
		{0, "0.00"},
	}

	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Percent(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
