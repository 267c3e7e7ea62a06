package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// CountryCode is the region customer phone numbers are validated against.
var CountryCode = "RO"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// national mobile format, e.g. 0722123456
var nationalMobilePattern = regexp.MustCompile(`^07\d{8}$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

// ValidateCustomerPhone accepts only valid numbers written in the national 07xxxxxxxx form.
func ValidateCustomerPhone(phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if !nationalMobilePattern.MatchString(phoneNumber) {
		return Validation("phone number must have the format 07xxxxxxxx")
	}
	if err := ValidatePhoneNumber(phoneNumber, CountryCode); err != nil {
		return Validation("phone number is not valid")
	}
	return nil
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool, len(slice))
	var result []T
	for _, v := range slice {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}
