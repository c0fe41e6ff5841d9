// Package banner 根据服务返回的首段数据识别服务类型和版本
package banner

import (
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
)

// LineDelimiter 多行 banner 合并时使用的分隔符
const LineDelimiter = " | "

// NoValue 无法识别时的占位符
const NoValue = "-"

// rule 单条签名
type rule struct {
	Service string
	Pattern string
	re      *regexp2.Regexp
}

// 签名按固定顺序逐条检查，每条命中都会覆盖之前的结果 (最后命中者生效)
var rules = []*rule{
	{Service: "ssh", Pattern: `(?i)\bssh-\d|openssh|dropbear`},
	{Service: "http", Pattern: `(?i)\bhttp/\d\.\d|<!doctype html|<html|(^|\|\s)(server|content-type|location|set-cookie|x-powered-by):`},
	{Service: "mysql", Pattern: `(?i)mysql|mariadb`},
	{Service: "smtp", Pattern: `(?i)\be?smtp\b|postfix|exim|sendmail`},
	{Service: "ftp", Pattern: `(?i)\bftp\b|ftpd|filezilla`},
	{Service: "imap", Pattern: `(?i)^\* ok\b|\bimap4?(rev1)?\b|dovecot`},
	{Service: "pop3", Pattern: `(?i)^\+ok\b|\bpop3\b`},
	{Service: "redis", Pattern: `(?i)redis|^-(err|noauth|denied)\b|^\+pong\b`},
}

var versionRe = regexp2.MustCompile(`\d+\.\d+\.\d+`, regexp2.None)

func init() {
	for _, r := range rules {
		r.re = regexp2.MustCompile(r.Pattern, regexp2.None)
		r.re.MatchTimeout = 100 * time.Millisecond
	}
	versionRe.MatchTimeout = 100 * time.Millisecond
}

// Match 识别结果
type Match struct {
	Service string
	Version string
	// 是否有签名命中，为 false 时 Service 为调用方提供的缺省值
	Matched bool
}

// Normalize 去掉控制字符，按行拆分后用 LineDelimiter 合并，忽略空行
func Normalize(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	lines := strings.FieldsFunc(string(raw), func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Map(func(r rune) rune {
			if r == unicode.ReplacementChar || unicode.IsControl(r) {
				return -1
			}
			return r
		}, line)
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, LineDelimiter)
}

// Classify 识别 banner
// fallback 为端口表中的缺省服务名，没有签名命中时原样返回，版本为 "-"
func Classify(banner, fallback string) Match {
	m := Match{Service: fallback, Version: NoValue}
	if banner == "" || banner == NoValue {
		return m
	}

	for _, r := range rules {
		if ok, _ := r.re.MatchString(banner); ok {
			m.Service = r.Service
			m.Matched = true
		}
	}
	if !m.Matched {
		return m
	}

	if v, err := versionRe.FindStringMatch(banner); err == nil && v != nil {
		m.Version = v.String()
	}
	return m
}

// ClassifyRaw Normalize + Classify，返回规整后的 banner ("-" 表示无数据)
func ClassifyRaw(raw []byte, fallback string) (string, Match) {
	text := Normalize(raw)
	if text == "" {
		return NoValue, Match{Service: fallback, Version: NoValue}
	}
	return text, Classify(text, fallback)
}
