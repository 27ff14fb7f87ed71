// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はスクレイプで抽出した生テキストをサニタイズし、
// 悪意あるページ由来のマークアップが履歴やAPI応答に混入することを防ぐ。
// bluemondayのStrictPolicyで全タグを除去し、プレーンテキストのみを残す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizedLength は履歴に保存する抽出テキストの最大長。
const maxSanitizedLength = 500

// TextSanitizerService は抽出テキストのサニタイズ機能のインターフェースを定義する。
// 価格履歴の保存前およびAPI応答時に使用される。
type TextSanitizerService interface {
	// SanitizeText は抽出テキストから全HTMLタグを除去し、
	// 前後の空白を刈り込んだプレーンテキストを返す。
	// 長すぎるテキストは履歴保存用に切り詰める。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy: 全てのタグと属性を除去し、テキストノードのみを残す。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は抽出テキストから全HTMLタグを除去して返す。
func (s *textSanitizer) SanitizeText(raw string) string {
	cleaned := strings.TrimSpace(s.policy.Sanitize(raw))
	if len(cleaned) > maxSanitizedLength {
		cleaned = cleaned[:maxSanitizedLength]
	}
	return cleaned
}
