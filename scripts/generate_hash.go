//go:build ignore

// generate_hash.go: утилита для генерации Argon2id хеша пароля.
// Запуск: go run scripts/generate_hash.go ваш_пароль
//
// Результат вставьте в .env как ADMIN_PASSWORD_HASH: этим паролем входят
// и в админ-аккаунт API (ADMIN_HANDLE), и в консоль Telegram (/login).
package main

import (
	"fmt"
	"os"

	"serotonyl.ru/goldmine/internal/features/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/generate_hash.go <пароль>")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Printf("Ошибка генерации хеша: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш пароля (вставьте в .env как ADMIN_PASSWORD_HASH):")
	fmt.Println(hash)
}
