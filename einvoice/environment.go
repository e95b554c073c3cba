package einvoice

import (
	"fmt"
	"strings"
)

type Environment int

const (
	Test Environment = iota
	Prod
)

// BaseURL REST API root; invoice query endpoints are relative to it.
func (e Environment) BaseURL() string {
	switch e {
	case Prod:
		return "https://e-invoicing.taxservice.am/api"
	case Test:
		return "https://e-invoicing-test.taxservice.am/api"
	}
	panic("Invalid environment")
}

// LoginURL legacy SOAP endpoint used only for authentication.
func (e Environment) LoginURL() string {
	switch e {
	case Prod:
		return "https://e-invoicing.taxservice.am/services/LoginService"
	case Test:
		return "https://e-invoicing-test.taxservice.am/services/LoginService"
	}
	panic("Invalid environment")
}

func (e Environment) Name() string {
	switch e {
	case Prod:
		return "prod"
	case Test:
		return "test"
	}
	panic("Invalid environment")
}

func (e *Environment) UnmarshalText(text []byte) error {
	val := strings.ToLower(strings.TrimSpace(string(text)))

	switch val {
	case "prod":
		*e = Prod
	case "test", "":
		*e = Test
	default:
		return fmt.Errorf("invalid EINVOICE_ENV: %q (allowed: prod, test)", val)
	}
	return nil
}
