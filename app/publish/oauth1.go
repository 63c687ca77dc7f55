package publish

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Credentials holds the four OAuth 1.0a user-context tokens the
// posting endpoints require.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

type oauth1Signer struct {
	creds Credentials
	nonce func() string
	now   func() time.Time
}

func newOAuth1Signer(creds Credentials) *oauth1Signer {
	return &oauth1Signer{
		creds: creds,
		nonce: randomNonce,
		now:   time.Now,
	}
}

// Authorize sets the OAuth Authorization header on req. Only query
// string and oauth parameters enter the signature base; OAuth 1.0a
// excludes JSON and multipart bodies from signing.
func (s *oauth1Signer) Authorize(req *http.Request) {
	oauthParams := map[string]string{
		"oauth_consumer_key":     s.creds.APIKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_token":            s.creds.AccessToken,
		"oauth_version":          "1.0",
	}

	oauthParams["oauth_signature"] = s.signature(req, oauthParams)

	pairs := make([]string, 0, len(oauthParams))
	for _, key := range sortedKeys(oauthParams) {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, key, percentEncode(oauthParams[key])))
	}

	req.Header.Set("Authorization", "OAuth "+strings.Join(pairs, ", "))
}

func (s *oauth1Signer) signature(req *http.Request, oauthParams map[string]string) string {
	params := map[string]string{}
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	for key, value := range oauthParams {
		params[key] = value
	}

	encoded := make([]string, 0, len(params))
	for _, key := range sortedKeys(params) {
		encoded = append(encoded, percentEncode(key)+"="+percentEncode(params[key]))
	}

	baseURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	base := strings.ToUpper(req.Method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(encoded, "&"))
	key := percentEncode(s.creds.APISecret) + "&" + percentEncode(s.creds.AccessTokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// percentEncode implements RFC 3986 encoding, which differs from
// url.QueryEscape in its treatment of spaces and tildes.
func percentEncode(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

func randomNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
