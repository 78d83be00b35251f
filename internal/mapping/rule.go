package mapping

import (
	"context"
	"fmt"
	"strings"
)

// fieldKeywords pairs a target field with the header keywords that imply it.
// Order matters: earlier fields win when a header matches several.
type fieldKeywords struct {
	field    string
	keywords []string
}

var salesKeywords = []fieldKeywords{
	{"order_id", []string{"주문번호", "거래 번호", "Order No.", "주문 ID", "주문 코드", "order_id"}},
	{"customer_id", []string{"고객ID", "고객 ID", "고객번호", "회원번호", "customer_id"}},
	{"customer_name", []string{"고객명", "성명", "이름", "사용자명", "회원명", "주문자명"}},
	{"order_date", []string{"주문일", "결제일", "구매 날짜", "구매일자", "거래일자", "주문일자", "날짜"}},
	{"completion_date", []string{"완료일", "처리일자", "배송완료일"}},
	{"product_names", []string{"상품명", "제품명", "상품 이름", "판매 상품", "구매상품", "상품"}},
	{"unit_price", []string{"단가", "개당 가격", "상품 가격", "판매가"}},
	{"quantity", []string{"수량", "구매 수량", "주문 수량", "판매 수량"}},
	{"total_amount", []string{"총액", "결제금액", "주문금액", "구매총액", "총 결제", "결제 금액", "합계", "금액"}},
	{"order_status", []string{"주문 상태", "배송 상태", "처리상태", "진행상태", "상태"}},
}

var customerKeywords = []fieldKeywords{
	{"customer_id", []string{"고객ID", "고객 ID", "고객번호", "회원번호", "customer_id", "ID"}},
	{"customer_name", []string{"고객명", "성명", "이름", "사용자명", "회원명"}},
	{"contact", []string{"전화", "휴대폰", "연락처", "핸드폰", "폰번호", "모바일"}},
	{"email", []string{"이메일", "E-mail", "email", "메일주소"}},
	{"birth_date", []string{"생년월일", "생일", "출생"}},
	{"join_date", []string{"가입", "등록일", "회원가입", "가입일"}},
}

// RuleProvider proposes mappings by keyword containment alone, no model call.
// Used when no mapper API key is configured, and as the degraded path when
// the chat backend is unreachable. Its output round-trips through the Parser.
type RuleProvider struct {
	cfg ParserConfig
}

func NewRuleProvider(cfg ParserConfig) *RuleProvider {
	if cfg.Separator == "" {
		cfg = DefaultParserConfig()
	}
	return &RuleProvider{cfg: cfg}
}

// MappingText emits one section per target schema, one line per header, with
// the none marker for headers no keyword claims.
func (p *RuleProvider) MappingText(_ context.Context, headers []string) (string, error) {
	var b strings.Builder

	b.WriteString("### " + p.cfg.SalesMarker + " 매핑\n")
	writeSection(&b, p.cfg, headers, salesKeywords)

	b.WriteString("\n### " + p.cfg.CustomerMarker + " 매핑\n")
	writeSection(&b, p.cfg, headers, customerKeywords)

	b.WriteString("\n### " + p.cfg.SummaryMarker + "\n")
	return b.String(), nil
}

func writeSection(b *strings.Builder, cfg ParserConfig, headers []string, rules []fieldKeywords) {
	for _, header := range headers {
		target, matched := matchHeader(header, rules)
		if matched {
			fmt.Fprintf(b, "%s %s %s (유사도: 1.0000)\n", header, cfg.Separator, target)
		} else {
			fmt.Fprintf(b, "%s %s %s\n", header, cfg.Separator, cfg.NoneMarker)
		}
	}
}

func matchHeader(header string, rules []fieldKeywords) (string, bool) {
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(header, keyword) {
				return rule.field, true
			}
		}
	}
	return "", false
}
