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


package topology

import "maps"

// defaultEnvironment configures the application for a self-contained
// deployment: development SDK keys, mock identity providers and no
// outbound messaging. GOOGLE_CAPTCHA is absent, it is delivered as a
// secret.
var defaultEnvironment = map[string]string{
	"APP_NAME":                           "Form",
	"APP_DESC":                           "Official government forms",
	"APP_URL":                            "https://form.demos.sg",
	"FE_APP_URL":                         "https://form.demos.sg",
	"ATTACHMENT_S3_BUCKET":               "form-attachment-bucket",
	"PAYMENT_PROOF_S3_BUCKET":            "form-payment-proof-bucket",
	"IMAGE_S3_BUCKET":                    "form-image-bucket",
	"LOGO_S3_BUCKET":                     "form-logo-bucket",
	"STATIC_ASSETS_S3_BUCKET":            "form-static-assets-bucket",
	"VIRUS_SCANNER_QUARANTINE_S3_BUCKET": "form-virus-scanner-quarantine-bucket",
	"VIRUS_SCANNER_CLEAN_S3_BUCKET":      "form-virus-scanner-clean-bucket",
	"FORMSG_SDK_MODE":                    "development",
	"BOUNCE_LIFE_SPAN":                   "86400000",
	"SECRET_ENV":                         "development",
	"SUBMISSIONS_RATE_LIMIT":             "200",
	"SEND_AUTH_OTP_RATE_LIMIT":           "60",
	"SENTRY_CONFIG_URL":                  "https://random@sentry.io/123456",
	"CSP_REPORT_URI":                     "https://random@sentry.io/123456",
	"GOOGLE_CAPTCHA_PUBLIC":              "6LeIxAcTAAAAAJcZVRqyHh71UMIEGNQ_MXjiZKhI",
	"VERIFICATION_SECRET_KEY":            "iGkfOuI6uxrlfw+7CZFFUZBwk86I+pu6v+g7EWA6qJpJnilXQleCPx2EVTr24eWWphzFO2WJiaL53oyXnqWdBQ==",
	"SIGNING_SECRET_KEY":                 "HDBXpu+2/gu10bLHpy8HjpN89xbA6boH9GwibPGJA8BOXmB+zOUpxCP33/S5p8vBWlPokC7gLR0ca8urVwfMUQ==",
	"TWILIO_ACCOUNT_SID":                 "AC00000000000000000000000000000000",
	"TWILIO_API_KEY":                     "mockTwilioApiKey",
	"TWILIO_API_SECRET":                  "mockTwilioApiSecret",
	"TWILIO_MESSAGING_SERVICE_SID":       "MG00000000000000000000000000000000",
	"SP_OIDC_NDI_DISCOVERY_ENDPOINT":     "https://mockpass.demos.sg/singpass/v2/.well-known/openid-configuration",
	"SP_OIDC_NDI_JWKS_ENDPOINT":          "https://mockpass.demos.sg/singpass/v2/.well-known/keys",
	"SP_OIDC_RP_CLIENT_ID":               "rpClientId",
	"SP_OIDC_RP_REDIRECT_URL":            "https://form.demos.sg/api/v3/singpass/login",
	"SP_OIDC_RP_JWKS_PUBLIC_PATH":        "./__tests__/setup/certs/test_sp_rp_public_jwks.json",
	"SP_OIDC_RP_JWKS_SECRET_PATH":        "./__tests__/setup/certs/test_sp_rp_secret_jwks.json",
	"CP_OIDC_NDI_DISCOVERY_ENDPOINT":     "https://mockpass.demos.sg/corppass/v2/.well-known/openid-configuration",
	"CP_OIDC_NDI_JWKS_ENDPOINT":          "https://mockpass.demos.sg/corppass/v2/.well-known/keys",
	"CP_OIDC_RP_CLIENT_ID":               "rpClientId",
	"CP_OIDC_RP_REDIRECT_URL":            "https://form.demos.sg/api/v3/corppass/login",
	"CP_OIDC_RP_JWKS_PUBLIC_PATH":        "./__tests__/setup/certs/test_cp_rp_public_jwks.json",
	"CP_OIDC_RP_JWKS_SECRET_PATH":        "./__tests__/setup/certs/test_cp_rp_secret_jwks.json",
	"SINGPASS_ESRVC_ID":                  "spEsrvcId",
	"MYINFO_CLIENT_CONFIG":               "dev",
	"MYINFO_FORMSG_KEY_PATH":             "./node_modules/@opengovsg/mockpass/static/certs/key.pem",
	"MYINFO_CERT_PATH":                   "./node_modules/@opengovsg/mockpass/static/certs/spcp.crt",
	"MYINFO_CLIENT_ID":                   "mockClientId",
	"MYINFO_CLIENT_SECRET":               "mockClientSecret",
	"MYINFO_JWT_SECRET":                  "mockJwtSecret",
	"SGID_HOSTNAME":                      "https://mockpass.demos.sg",
	"SGID_CLIENT_ID":                     "sgidclientid",
	"SGID_CLIENT_SECRET":                 "sgidclientsecret",
	"SGID_JWT_SECRET":                    "sgidjwtsecret",
	"SGID_ADMIN_LOGIN_REDIRECT_URI":      "https://form.demos.sg/api/v3/auth/sgid/login/callback",
	"SGID_FORM_LOGIN_REDIRECT_URI":       "https://form.demos.sg/sgid/login",
	"SGID_PRIVATE_KEY":                   "./node_modules/@opengovsg/mockpass/static/certs/key.pem",
	"SGID_PUBLIC_KEY":                    "./node_modules/@opengovsg/mockpass/static/certs/server.crt",
	"SSM_ENV_SITE_NAME":                  "development",
	"API_KEY_VERSION":                    "v1",
	"VIRUS_SCANNER_LAMBDA_FUNCTION_NAME": "function",
	"GA_TRACKING_ID":                     "mockGATrackingId",
	"POSTMAN_INTERNAL_CAMPAIGN_ID":       "notused",
	"POSTMAN_INTERNAL_CAMPAIGN_API_KEY":  "notused",
	"POSTMAN_MOP_CAMPAIGN_ID":            "notused",
	"POSTMAN_MOP_CAMPAIGN_API_KEY":       "notused",
	"POSTMAN_BASE_URL":                   "notused",
}

// DefaultEnvironment returns a copy of the static environment of the
// application. Deployment values, such as bucket names and the public URL,
// override these.
func DefaultEnvironment() map[string]string {
	return maps.Clone(defaultEnvironment)
}
