package email

const (
	subjectMagicLink = "Your sign-in link"
)
