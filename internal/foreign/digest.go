package foreign

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerDigest(reg *registry.Registry) {
	reg.StaticMethod("Digest", fnDigest(md5.New), "md5")
	reg.StaticMethod("Digest", fnDigest(sha1.New), "sha1")
	reg.StaticMethod("Digest", fnDigest(sha256.New), "sha256")
	reg.StaticMethod("Digest", fnDigestHmac(sha256.New), "hmac_sha256")
	reg.StaticMethod("Digest", fnBase64Encode(), "base64")
	reg.StaticMethod("Digest", fnBase64Decode(), "unbase64")
}

// fnDigest returns the hex digest of its string argument.
func fnDigest(newHash func() hash.Hash) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		h := newHash()
		h.Write([]byte(s))
		return str(hex.EncodeToString(h.Sum(nil))), nil
	}
}

// fnDigestHmac is hmac_sha256(message, secret).
func fnDigestHmac(newHash func() hash.Hash) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		message, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		secret, err := toStr(ctx, args[1])
		if err != nil {
			return nil, err
		}
		h := hmac.New(newHash, []byte(secret))
		h.Write([]byte(message))
		return str(hex.EncodeToString(h.Sum(nil))), nil
	}
}

func fnBase64Encode() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return str(base64.StdEncoding.EncodeToString([]byte(s))), nil
	}
}

func fnBase64Decode() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, ctx.NewError("ArgumentError", "invalid base64: %s", err.Error())
		}
		return str(string(data)), nil
	}
}
