package server

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxNameLength = 20
	maxLobbySize  = 24
	maxRoleQuota  = 8
)

func validateName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", errors.New("name is required")
	}
	if len(trimmed) > maxNameLength {
		return "", fmt.Errorf("name must be %d characters or fewer", maxNameLength)
	}
	if !isSafeText(trimmed) {
		return "", errors.New("name contains unsupported characters")
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '.':
			continue
		default:
			return false
		}
	}
	return true
}

// clampQuota keeps a requested role quota within sane bounds; the assigner
// itself absorbs quotas that still exceed the roster.
func clampQuota(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxRoleQuota {
		return maxRoleQuota
	}
	return n
}
