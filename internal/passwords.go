package internal

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadPasswordsFromFile loads passwords from a file, one password per line.
// Blank lines are skipped.
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// ResolvePassword returns the container password to use. An explicit value
// wins; otherwise the first password in passwordFile is used. Both empty
// means no password.
func ResolvePassword(value, passwordFile string) (string, error) {
	if value != "" {
		return value, nil
	}
	if passwordFile == "" {
		return "", nil
	}
	passwords, err := LoadPasswordsFromFile(passwordFile)
	if err != nil {
		return "", fmt.Errorf("loading passwords from file: %w", err)
	}
	if len(passwords) == 0 {
		return "", fmt.Errorf("password file %s contains no passwords", passwordFile)
	}
	return passwords[0], nil
}
