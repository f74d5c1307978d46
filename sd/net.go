package sd

import (
	"net"

	"github.com/pkg/errors"
)

// InheritNamedListener returns an inherited listener with the given name (any if
// "") passing the tests, or nil if there is none. A returned listener is Exported.
func InheritNamedListener(wantName string, tests ...FileTest) (l net.Listener, gotName string, err error) {
	file, gotName, err := FileWith(wantName, tests...)
	if err != nil || file == nil {
		return nil, gotName, err
	}
	// FileListener and Export both dup(), so this copy is closed.
	defer file.Close()
	if l, err = net.FileListener(file); err != nil {
		return nil, gotName, errors.Wrapf(err, "inherit %q", gotName)
	}
	if err = Export(gotName, l); err != nil {
		l.Close()
		return nil, gotName, err
	}
	return l, gotName, nil
}
