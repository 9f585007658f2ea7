// Package license checks a public/secret API key pair and a username against
// the remote license server.
//
// The server is sent a JSON body {"publicKey", "secretKey", "username"} and
// the keys are valid only when it answers 200 with the message
// "Keys are valid". Requests pass through a ratelimit.Limiter and transient
// failures (network, 429, 5xx) are retried with retry.Do.
//
//	client := license.NewClientFromConfig(&cfg.License)
//	ok, err := client.CheckKeys(ctx, cfg.License.PublicKey, cfg.License.SecretKey, username)
package license
