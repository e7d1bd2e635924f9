package opnsense

import "errors"

// Reference is the opaque remote identifier of a resource. Depending on the
// kind it is a certificate refid, a UUID, or a short numeric id.
type Reference string

// ErrNoReference is returned when a resolved row exposes none of the known
// identifier fields. It is distinct from a failed lookup: the resource was
// found but cannot be addressed.
var ErrNoReference = errors.New("resource row carries no usable identifier")

// Referencer is implemented by every row type. The extraction precedence is
// fixed: certificate refid, then UUID, then numeric id.
type Referencer interface {
	Reference() (Reference, error)
}

func refFrom(refid, uuid, id string) (Reference, error) {
	switch {
	case refid != "":
		return Reference(refid), nil
	case uuid != "":
		return Reference(uuid), nil
	case id != "":
		return Reference(id), nil
	default:
		return "", ErrNoReference
	}
}
