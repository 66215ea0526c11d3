// Package secret stores credentials such as the OpenAI API key in the
// operating system keyring, so they never have to be written to the
// configuration file.
package secret
