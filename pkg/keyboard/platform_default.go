//go:build !darwin

package keyboard

type unsupportedBackend struct{}

func defaultBackend() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) Install([]EventType, Handler) (Loop, error) {
	return nil, ErrUnsupportedPlatform
}

func defaultLayouts() LayoutService {
	return StaticLayouts{Layout: USLayout()}
}
