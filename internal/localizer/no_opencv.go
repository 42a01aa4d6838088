//go:build !opencv

package localizer

const opencvAvailable = false

func newOpenCV(string) (Localizer, error) { return nil, ErrNoOpenCV }
