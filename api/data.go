package main

import "time"

type user struct {
	ID           int       `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Age          int       `json:"age"`
	PasswordHash []byte    `json:"-"`
	Version      int       `json:"-"`
}

type task struct {
	ID          int       `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      int       `json:"user_id"`
	Description string    `json:"description"`
	IsCompleted bool      `json:"completed"`
	Version     int       `json:"-"`
}
