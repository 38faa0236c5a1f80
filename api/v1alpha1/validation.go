// Copyright 2025 The Kubernetes Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1alpha1

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	regionPattern  = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9]$`)
	envNamePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their document names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "awsregion", func(fl validator.FieldLevel) bool {
		return regionPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "envname", func(fl validator.FieldLevel) bool {
		return envNamePattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate checks the document header and every field of the spec. All
// field errors are reported together.
func (d *Deployment) Validate() error {
	var errs []error
	if d.APIVersion != GroupVersion.String() {
		errs = append(errs, fmt.Errorf("apiVersion must be %s, got %q", GroupVersion, d.APIVersion))
	}
	if d.Kind != KindDeployment {
		errs = append(errs, fmt.Errorf("kind must be %s, got %q", KindDeployment, d.Kind))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("metadata.name is required"))
	}

	err := validate.Struct(d.Spec)
	var fieldErrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			errs = append(errs, fieldError(fe))
		}
	default:
		errs = append(errs, err)
	}

	if ws := d.Spec.Scanner.WarmInterval; ws != nil && d.Spec.Scanner.Backend != ScannerBackendFunction {
		errs = append(errs, errors.New("spec.scanner.warmInterval only applies to the function backend"))
	}
	return errors.Join(errs...)
}

// fieldError turns a validator error into a message naming the document
// path, e.g. "spec.parameters.email: must be a valid email address".
func fieldError(fe validator.FieldError) error {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = "spec." + rest
	}
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "email":
		reason = "must be a valid email address"
	case "fqdn", "hostname_rfc1123":
		reason = "must be a valid domain name"
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		reason = "must be at least " + fe.Param()
	case "max":
		reason = "must be at most " + fe.Param()
	case "gtefield":
		reason = "must not be less than " + lowerFirst(fe.Param())
	case "awsregion":
		reason = "must be an AWS region such as ap-southeast-1"
	case "envname":
		reason = "must be an upper case environment variable name"
	default:
		reason = "failed " + fe.Tag() + " validation"
	}
	return fmt.Errorf("%s: %s", path, reason)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
