package models

type Settings struct {
	WelcomeMessage        string
	UnknownCommandMessage string
	CompletedMessage      string
}
