package auth

import (
	"strings"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/beevik/etree"
	"github.com/go-faster/errors"
)

const successCode = "0000"

type tokenSource int

const (
	tokenFromElement tokenSource = iota + 1
	tokenFromAttribute
)

func (s tokenSource) String() string {
	switch s {
	case tokenFromElement:
		return "element"
	case tokenFromAttribute:
		return "attribute"
	}
	return "none"
}

type extractedToken struct {
	value  string
	source tokenSource
}

type loginStatus struct {
	code    string
	message string
}

type loginResponse struct {
	status *loginStatus
	token  extractedToken
}

func parseLoginResponse(body []byte) (*loginResponse, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, errors.Wrap(einvoice.ErrUpstreamTransport, "login response is not XML: "+err.Error())
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.Wrap(einvoice.ErrUpstreamTransport, "empty login response")
	}

	res := &loginResponse{}
	if st := findElement(root, "Status"); st != nil {
		res.status = &loginStatus{
			code:    attrValue(st, "Code"),
			message: attrValue(st, "Message"),
		}
	}
	res.token = extractToken(root)
	return res, nil
}

// result status check first, token extraction only for accepted logins
func (r *loginResponse) result() (string, error) {
	if r.status != nil && r.status.code != successCode {
		return "", &einvoice.AuthError{Code: r.status.code, Message: r.status.message}
	}
	if r.token.source == 0 {
		return "", einvoice.ErrTokenExtractionFailed
	}
	return r.token.value, nil
}

// extractToken element text first, then an attribute on any element.
func extractToken(root *etree.Element) extractedToken {
	if el := findElement(root, "Token"); el != nil {
		if v := strings.TrimSpace(el.Text()); v != "" {
			return extractedToken{value: v, source: tokenFromElement}
		}
	}
	var found extractedToken
	walk(root, func(e *etree.Element) bool {
		if v := strings.TrimSpace(attrValue(e, "Token")); v != "" {
			found = extractedToken{value: v, source: tokenFromAttribute}
			return false
		}
		return true
	})
	return found
}

func findElement(root *etree.Element, tag string) *etree.Element {
	var found *etree.Element
	walk(root, func(e *etree.Element) bool {
		if strings.EqualFold(e.Tag, tag) {
			found = e
			return false
		}
		return true
	})
	return found
}

// walk depth first, stops when fn returns false
func walk(e *etree.Element, fn func(*etree.Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, ch := range e.ChildElements() {
		if !walk(ch, fn) {
			return false
		}
	}
	return true
}

func attrValue(e *etree.Element, key string) string {
	for _, a := range e.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Value
		}
	}
	return ""
}
