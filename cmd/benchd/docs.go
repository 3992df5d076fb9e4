package main

// General API documentation for swaggo. Run `swag init -g cmd/benchd/docs.go` to regenerate docs/.
//
// @title           benchd API
// @version         1.0
// @description     HTTP API for broadcasting prompts to several LLMs and comparing their answers.
//
// @contact.name   benchd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
