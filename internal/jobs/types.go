package jobs

type JobType string

const (
	JobWelcomeEmail    JobType = "user.welcome_email"
	JobPasswordChanged JobType = "user.password_changed"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobWelcomeEmail, JobPasswordChanged:
		return true
	default:
		return false
	}
}
