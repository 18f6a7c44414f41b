package email

// Config holds email delivery settings. Without a Postmark server token the
// service logs messages instead of sending them.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"billing@resumekit.local"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@resumekit.local"`
}
