package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// envelope {ok: bool, payload: any} wrapping every REST response.
type envelope struct {
	ok      bool
	hasOK   bool
	payload jx.Raw
	message string
}

var errNotJSONObject = errors.New("response body is not a JSON object")

func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return env, errNotJSONObject
	}

	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "ok":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "ok")
			}
			env.ok = v
			env.hasOK = true
		case "payload":
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "payload")
			}
			env.payload = append(jx.Raw(nil), raw...)
		case "message", "error":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			if env.message == "" {
				env.message = s
			}
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return env, errors.Wrap(err, "decode envelope")
	}
	if !env.hasOK {
		return env, errors.New("response envelope has no ok field")
	}

	// ok:false usually carries the reason as a plain string payload
	if !env.ok && env.message == "" && env.payload.Type() == jx.String {
		if s, err := jx.DecodeBytes(env.payload).Str(); err == nil {
			env.message = s
		}
	}
	return env, nil
}

// request body wrapper expected by every REST endpoint
type payloadRequest struct {
	Payload any `json:"payload"`
}
