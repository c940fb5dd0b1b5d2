package service

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/tss-calculator/matrixbuild/pkg/matrix/application/model"
)

type releaseVariables struct {
	AppName     string
	Commit      string
	ShortCommit string
	Ref         string
	Event       string
}

// NameRelease renders tag, title and body from the event only, so the same
// commit always yields the same names.
func NameRelease(appName string, releaseTemplate model.ReleaseTemplate, event model.Event) (model.Release, error) {
	variables := releaseVariables{
		AppName:     appName,
		Commit:      event.Commit,
		ShortCommit: event.ShortCommit(),
		Ref:         event.Ref,
		Event:       string(event.Kind),
	}
	tag, err := render("tag", releaseTemplate.Tag, variables)
	if err != nil {
		return model.Release{}, err
	}
	if tag == "" {
		return model.Release{}, errors.New("release tag is empty")
	}
	title, err := render("title", releaseTemplate.Title, variables)
	if err != nil {
		return model.Release{}, err
	}
	body, err := render("body", releaseTemplate.Body, variables)
	if err != nil {
		return model.Release{}, err
	}
	return model.Release{
		Tag:    tag,
		Title:  title,
		Body:   body,
		Commit: event.Commit,
	}, nil
}

func render(name, text string, variables releaseVariables) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse release %v template", name)
	}
	var out bytes.Buffer
	if err = t.Execute(&out, variables); err != nil {
		return "", errors.Wrapf(err, "failed to execute release %v template", name)
	}
	return strings.TrimSpace(out.String()), nil
}
