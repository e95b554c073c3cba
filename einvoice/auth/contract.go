package auth

import "context"

// Transport legacy XML endpoint, implemented by *api.Client.
type Transport interface {
	PostXML(ctx context.Context, body []byte) ([]byte, error)
}
