// Package price はスクレイプした生テキストから価格を抽出する純粋関数を提供する。
// ネットワークや保存層に依存せず、入力文字列のみから決定的に結果を返す。
package price

import (
	"strings"

	"github.com/hitoshi/pricewatch/internal/model"
)

// currencySymbols は認識する通貨記号の固定セット。
// テキスト中に最初に現れた記号を採用する。
var currencySymbols = []string{"£", "$", "€", "¥"}

// Parsed は価格抽出の結果を表す。
// 記号・数値が見つからないことはエラーではなく、nil/空で表現する。
type Parsed struct {
	Currency string       // 検出した通貨記号。未検出の場合は空文字列
	Price    *model.Money // 抽出した価格。数値として解釈できない場合はnil
	Raw      string       // 前後の空白を除去した元テキスト
}

// Parse は生テキストから通貨記号と価格を抽出する。
//
// 数値の解釈規則:
//   - カンマとピリオドが両方含まれる場合、文字列中で後に現れる方を
//     小数点とみなし、先に現れる方は桁区切りとして除去する。
//     例: "1.234,56" -> 1234.56 / "1,234.56" -> 1234.56
//   - カンマのみの場合、最後のカンマで分割した小数部がちょうど2桁なら
//     カンマを小数点とみなす（"99,99" -> 99.99）。それ以外はすべて
//     桁区切りとして除去する（"1,234" -> 1234）。
//   - ピリオドのみ、または区切りなしの場合はそのまま10進数として解釈する。
//
// Raw を再度Parseしても同じ結果が得られる（冪等）。
func Parse(rawText string) Parsed {
	raw := strings.TrimSpace(rawText)
	result := Parsed{Raw: raw}

	for _, sym := range currencySymbols {
		if strings.Contains(raw, sym) {
			result.Currency = sym
			break
		}
	}

	cleaned := reduceToNumeric(raw)
	normalized := normalizeSeparators(cleaned)
	if normalized == "" {
		return result
	}

	amount, err := model.ParseMoney(normalized)
	if err != nil {
		return result
	}

	result.Price = &amount
	return result
}

// reduceToNumeric は数字・カンマ・ピリオド以外の文字をすべて除去する。
func reduceToNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeSeparators はカンマ/ピリオドの曖昧さを解決し、
// 小数点がピリオドの標準形に変換する。
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastPeriod := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastPeriod >= 0:
		// 両方ある場合: 後に現れた方が小数点、もう一方は桁区切り。
		decimal := byte('.')
		if lastComma > lastPeriod {
			decimal = ','
		}
		return rebuildWithDecimal(s, decimal)

	case lastComma >= 0:
		// カンマのみ: 小数部がちょうど2桁なら小数点とみなす。
		intPart := s[:lastComma]
		fracPart := s[lastComma+1:]
		if len(fracPart) == 2 {
			return strings.ReplaceAll(intPart, ",", "") + "." + fracPart
		}
		return strings.ReplaceAll(s, ",", "")

	default:
		// ピリオドのみ、または区切りなし。
		return s
	}
}

// rebuildWithDecimal は指定の区切り文字の最後の出現のみを小数点として残し、
// それ以外の区切り文字をすべて除去する。
func rebuildWithDecimal(s string, decimal byte) string {
	lastIdx := strings.LastIndexByte(s, decimal)

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case i == lastIdx:
			b.WriteByte('.')
		}
	}
	return b.String()
}
