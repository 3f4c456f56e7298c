package pkg

import (
	"crypto/tls"
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	return d.DialAndSend(m)
}

// NewPostEmailHTML 新内容通知邮件
func NewPostEmailHTML(authorName, postTitle, postURL string) string {
	return fmt.Sprintf(
		`<p>%s just published a new post:</p><p><a href="%s"><b>%s</b></a></p>`,
		html.EscapeString(authorName), postURL, html.EscapeString(postTitle),
	)
}

// DigestEmailHTML 新粉丝摘要邮件，names 已截断，total 为总数
func DigestEmailHTML(period string, total int, names []string, followersURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>You gained <b>%d</b> new follower(s) %s:</p><ul>", total, html.EscapeString(period))
	for _, n := range names {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(n))
	}
	b.WriteString("</ul>")
	if total > len(names) {
		fmt.Fprintf(&b, "<p>…and %d more.</p>", total-len(names))
	}
	fmt.Fprintf(&b, `<p><a href="%s">See all your followers</a></p>`, followersURL)
	return b.String()
}
