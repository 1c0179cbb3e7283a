package settlement

import (
	"github.com/google/uuid"

	"serotonyl.ru/goldmine/internal/common"
	"serotonyl.ru/goldmine/internal/features/accounts"
)

// Caller: уже аутентифицированный инициатор операции.
// Admin: явная возможность выполнять операции администратора.
type Caller struct {
	ID    uuid.UUID
	Name  string
	Admin bool
}

// AccountCaller строит Caller из аккаунта, прочитанного из хранилища.
func AccountCaller(acc *accounts.Account) Caller {
	return Caller{ID: acc.ID, Name: acc.Handle, Admin: acc.IsAdmin}
}

// SystemAdmin: администратор без аккаунта в кошельке (админ-консоль, задачи).
func SystemAdmin(name string) Caller {
	return Caller{Name: name, Admin: true}
}

func (c Caller) requireAdmin() error {
	if !c.Admin {
		return common.ErrUnauthorized
	}
	return nil
}
