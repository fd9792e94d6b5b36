package app

import (
	"github.com/AlecAivazis/survey/v2"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// SurveyConfirmer prompts on the terminal. The default answer is no.
type SurveyConfirmer struct{}

func (SurveyConfirmer) Confirm(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
