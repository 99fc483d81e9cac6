// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はリスト名・説明・国名などユーザーが入力するプレーンテキストから
// HTMLマークアップを除去し、保存されたデータがクライアントでXSSの原因にならないようにする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Clean は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script、styleなどの要素は中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxCleanPasses はエンティティで多重にエスケープされたタグを剥がす最大回数。
const maxCleanPasses = 4

// Clean はHTMLタグを除去したプレーンテキストを返す。
// StrictPolicyはテキストをHTMLエスケープするため、JSONで返すプレーンテキストとして元に戻す。
// 元に戻した結果にタグが現れる場合があるため、変化がなくなるまで繰り返す。
func (s *textSanitizer) Clean(raw string) string {
	cleaned := raw
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(cleaned))
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return strings.TrimSpace(cleaned)
}
