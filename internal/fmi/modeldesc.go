package fmi

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const modelDescriptionFile = "modelDescription.xml"

// Variable is one entry of the model variable table.
type Variable struct {
	Name           string
	ValueReference ValueReference
	Type           string // Float64, Int32, Boolean, String... (FMI 2.0 Real is reported as Float64)
	Causality      string
	Variability    string
	Description    string
}

// ModelDescription is the subset of modelDescription.xml needed to run a co-simulation.
type ModelDescription struct {
	FMIVersion      string
	ModelName       string
	GUID            string // instantiationToken for FMI 3.0
	ModelIdentifier string
	Variables       []Variable

	index map[string]int
}

// MajorVersion returns 2 or 3 based on the fmiVersion attribute.
func (md *ModelDescription) MajorVersion() int {
	if strings.HasPrefix(md.FMIVersion, "3") {
		return 3
	}
	return 2
}

// Variable looks a variable up by name.
func (md *ModelDescription) Variable(name string) (Variable, error) {
	i, ok := md.index[name]
	if !ok {
		return Variable{}, &MissingVariableError{Name: name}
	}
	return md.Variables[i], nil
}

// ValueReference resolves a variable name to its value reference.
func (md *ModelDescription) ValueReference(name string) (ValueReference, error) {
	v, err := md.Variable(name)
	if err != nil {
		return 0, err
	}
	return v.ValueReference, nil
}

// ValueReferences resolves several names, failing on the first missing one.
func (md *ModelDescription) ValueReferences(names ...string) ([]ValueReference, error) {
	vrs := make([]ValueReference, 0, len(names))
	for _, name := range names {
		vr, err := md.ValueReference(name)
		if err != nil {
			return nil, err
		}
		vrs = append(vrs, vr)
	}
	return vrs, nil
}

type xmlTypeElement struct {
	XMLName xml.Name
}

type xmlVariable struct {
	XMLName        xml.Name
	Name           string           `xml:"name,attr"`
	ValueReference uint32           `xml:"valueReference,attr"`
	Causality      string           `xml:"causality,attr"`
	Variability    string           `xml:"variability,attr"`
	Description    string           `xml:"description,attr"`
	Children       []xmlTypeElement `xml:",any"`
}

type xmlModelDescription struct {
	FMIVersion         string `xml:"fmiVersion,attr"`
	ModelName          string `xml:"modelName,attr"`
	GUID               string `xml:"guid,attr"`
	InstantiationToken string `xml:"instantiationToken,attr"`
	CoSimulation       *struct {
		ModelIdentifier string `xml:"modelIdentifier,attr"`
	} `xml:"CoSimulation"`
	ModelVariables struct {
		Variables []xmlVariable `xml:",any"`
	} `xml:"ModelVariables"`
}

// ParseModelDescription decodes a modelDescription.xml document.
func ParseModelDescription(r io.Reader) (*ModelDescription, error) {
	var raw xmlModelDescription
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode model description: %w", err)
	}
	if raw.CoSimulation == nil || raw.CoSimulation.ModelIdentifier == "" {
		return nil, ErrNoCoSimulation
	}

	md := &ModelDescription{
		FMIVersion:      raw.FMIVersion,
		ModelName:       raw.ModelName,
		GUID:            raw.GUID,
		ModelIdentifier: raw.CoSimulation.ModelIdentifier,
		index:           make(map[string]int, len(raw.ModelVariables.Variables)),
	}
	if md.MajorVersion() == 3 {
		md.GUID = raw.InstantiationToken
	}

	for _, xv := range raw.ModelVariables.Variables {
		v := Variable{
			Name:           xv.Name,
			ValueReference: xv.ValueReference,
			Type:           xv.XMLName.Local,
			Causality:      xv.Causality,
			Variability:    xv.Variability,
			Description:    xv.Description,
		}
		if v.Type == "ScalarVariable" {
			v.Type = ""
			if len(xv.Children) > 0 {
				v.Type = xv.Children[0].XMLName.Local
			}
			if v.Type == "Real" {
				v.Type = "Float64"
			}
		}
		md.index[v.Name] = len(md.Variables)
		md.Variables = append(md.Variables, v)
	}
	return md, nil
}

// ReadModelDescription reads modelDescription.xml straight from an FMU archive.
func ReadModelDescription(bundle string) (*ModelDescription, error) {
	zr, err := zip.OpenReader(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to open fmu %s: %w", bundle, err)
	}
	defer zr.Close()

	f, err := zr.Open(modelDescriptionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in %s: %w", modelDescriptionFile, bundle, err)
	}
	defer f.Close()

	return ParseModelDescription(f)
}
