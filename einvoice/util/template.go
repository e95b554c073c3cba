package util

import (
	"bytes"
	"encoding/xml"
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"xml": escapeXML,
}

func MergeTemplate(tpl *string, model any) ([]byte, error) {

	tmpl, err := template.New("request").Funcs(funcMap).Parse(*tpl)
	if err != nil {
		return nil, err
	}

	var output bytes.Buffer

	err = tmpl.Execute(&output, model)
	if err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

func escapeXML(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}
