package pages

import "errors"

const (
	NoticeError   = "error"
	NoticeSuccess = "success"
)

const (
	loadFailedText   = "We couldn't load this section. Please try again."
	genericWriteText = "Something went wrong. Please try again."
)

// Notice: единый канал сообщений пользователю. Текст всегда безопасен для показа.
type Notice struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func Success(text string) *Notice {
	return &Notice{Kind: NoticeSuccess, Text: text}
}

func LoadFailed() *Notice {
	return &Notice{Kind: NoticeError, Text: loadFailedText}
}

// UserError: ошибка со своим текстом для пользователя.
type UserError interface {
	UserMessage() string
}

// Sanitize возвращает текст известной ошибки или общий текст. Сырые ошибки
// бэкенда пользователю не показываются.
func Sanitize(err error, known ...error) string {
	var ue UserError
	if errors.As(err, &ue) {
		return ue.UserMessage()
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return genericWriteText
}

func Failure(err error, known ...error) *Notice {
	return &Notice{Kind: NoticeError, Text: Sanitize(err, known...)}
}
