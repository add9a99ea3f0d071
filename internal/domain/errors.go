package domain

import "errors"

var (
	// ErrCustomerNameRequired — имя клиента обязательно при создании заказа.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists возвращается при попытке создать заказ с занятым ID.
	ErrOrderExists = errors.New("order already exists")
	// ErrOrderTerminal — заказ уже в терминальном статусе, переходов нет.
	ErrOrderTerminal = errors.New("order is in terminal status")
	// ErrUnknownEventType — дискриминатор события вне известного набора.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrOutboxEventNotFound возвращается при пометке несуществующей строки outbox.
	ErrOutboxEventNotFound = errors.New("outbox event not found")
)

// IsPermanent сообщает, что ошибка бизнесовая и повтор операции бессмыслен.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrCustomerNameRequired) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderExists) ||
		errors.Is(err, ErrOrderTerminal) ||
		errors.Is(err, ErrUnknownEventType)
}
