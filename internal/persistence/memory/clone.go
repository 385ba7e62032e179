package memory

import (
	"time"

	"github.com/example/officehours/internal/persistence"
)

func cloneSeries(series persistence.Series) persistence.Series {
	series.EndNanos = cloneUint(series.EndNanos)
	return series
}

func cloneException(exception persistence.Exception) persistence.Exception {
	exception.StartNanos = cloneUint(exception.StartNanos)
	exception.EndNanos = cloneUint(exception.EndNanos)
	exception.Notes = cloneString(exception.Notes)
	exception.Host = cloneString(exception.Host)
	return exception
}

func cloneOneOff(oneOff persistence.OneOff) persistence.OneOff {
	oneOff.Host = cloneString(oneOff.Host)
	return oneOff
}

func cloneUser(user persistence.User) persistence.User {
	blocks := make([]persistence.OutOfOfficeBlock, len(user.OutOfOffice))
	copy(blocks, user.OutOfOffice)
	user.OutOfOffice = blocks
	user.LastActive = cloneTime(user.LastActive)
	return user
}

func cloneNotification(notification persistence.Notification) persistence.Notification {
	if notification.InstanceID != nil {
		id := *notification.InstanceID
		notification.InstanceID = &id
	}
	notification.SentAt = cloneTime(notification.SentAt)
	return notification
}

func cloneToken(token persistence.Token) persistence.Token {
	token.LastUsedAt = cloneTime(token.LastUsedAt)
	token.RevokedAt = cloneTime(token.RevokedAt)
	return token
}

func cloneUint(value *uint64) *uint64 {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}
