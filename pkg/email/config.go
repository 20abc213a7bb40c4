package email

// Config holds email channel configuration. The Postmark tokens are optional
// so development environments can run with the dev sender instead; the
// sender identity is always required.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"ALERT_SENDER_EMAIL,required"`
	ReplyToEmail         string `env:"ALERT_REPLY_TO_EMAIL"`
}
