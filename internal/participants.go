package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sensiblebit/ddscert"
	"gopkg.in/yaml.v3"
)

// ParticipantConfig is one participant's security configuration.
type ParticipantConfig struct {
	Name                string `yaml:"name" validate:"required"`
	IdentityCA          string `yaml:"identity_ca" validate:"required,cert_uri"`
	IdentityCertificate string `yaml:"identity_certificate" validate:"required,cert_uri"`
	Password            string `yaml:"password,omitempty"`
}

// ParticipantDefaults holds values applied to participants that leave them
// unset.
type ParticipantDefaults struct {
	Password string `yaml:"password,omitempty"`
}

// ParticipantsFile is the full YAML structure with defaults and
// participants.
type ParticipantsFile struct {
	Defaults     ParticipantDefaults `yaml:"defaults,omitempty"`
	Participants []ParticipantConfig `yaml:"participants" validate:"required,min=1,unique=Name,dive"`
}

// NewConfigValidator returns a validator with the cert_uri tag registered.
func NewConfigValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("cert_uri", validateCertURI)
	return validate
}

// validateCertURI accepts URIs whose scheme is recognized, whether or not
// it is loadable. Empty values are left to the required tag.
func validateCertURI(fl validator.FieldLevel) bool {
	uri := fl.Field().String()
	if uri == "" {
		return true
	}
	return ddscert.Classify(uri).Scheme() != ddscert.SchemeUnknown
}

// LoadParticipants reads and validates a participants file. Relative file:
// paths are resolved against the file's directory and the default password
// is applied to participants without one.
func LoadParticipants(path string) ([]ParticipantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseParticipants(data, filepath.Dir(path))
}

// ParseParticipants parses participants YAML. baseDir anchors relative
// file: paths; pass "" to leave them untouched.
func ParseParticipants(data []byte, baseDir string) ([]ParticipantConfig, error) {
	var file ParticipantsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing participants: %w", err)
	}
	if err := NewConfigValidator().Struct(&file); err != nil {
		return nil, validationError(err)
	}

	for i := range file.Participants {
		p := &file.Participants[i]
		if p.Password == "" {
			p.Password = file.Defaults.Password
		}
		p.IdentityCA = anchorFileURI(p.IdentityCA, baseDir)
		p.IdentityCertificate = anchorFileURI(p.IdentityCertificate, baseDir)
	}
	return file.Participants, nil
}

func anchorFileURI(uri, baseDir string) string {
	loc, ok := ddscert.Classify(uri).(ddscert.FileLocation)
	if !ok || baseDir == "" || loc.Path == "" || filepath.IsAbs(loc.Path) {
		return uri
	}
	return "file:" + filepath.Join(baseDir, loc.Path)
}

// validationError flattens validator errors into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating participants: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "cert_uri":
			msgs = append(msgs, fmt.Sprintf("%s: %q has no recognized URI scheme", fe.Namespace(), fe.Value()))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s: participant names must be unique", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("validating participants: %s", strings.Join(msgs, "; "))
}
