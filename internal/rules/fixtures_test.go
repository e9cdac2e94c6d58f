package rules

import (
	"strings"
	"testing/fstest"
)

// A module that satisfies every rule in the catalog.

const goodVariables = `variable "client" {
  description = "Client name"
  type        = string

  validation {
    condition     = can(regex("^[a-z0-9]{3,20}$", var.client))
    error_message = "client must be lowercase alphanumeric."
  }
}

variable "project" {
  description = "Project name"
  type        = string

  validation {
    condition     = can(regex("^[a-z0-9-]{3,30}$", var.project))
    error_message = "project must be lowercase alphanumeric."
  }
}

variable "environment" {
  description = "Deployment environment"
  type        = string

  validation {
    condition     = contains(["dev", "qa", "pdn"], var.environment)
    error_message = "environment must be dev, qa or pdn."
  }
}

variable "bucket_config" {
  description = "Buckets to create, keyed by logical name"
  type = map(object({
    encryption_enabled  = optional(bool, true)
    block_public_access = optional(bool, true)
    enable_logging      = optional(bool, true)
    enable_versioning   = optional(bool, true)
    additional_tags     = optional(map(string), {})
    policy_statements = optional(list(object({
      sid     = string
      effect  = string
      actions = list(string)
    })), [])
  }))
}

variable "tags" {
  description = "Extra tags"
  type        = map(string) # merged into resource tags
  default     = {}
}
`

const goodMain = `resource "aws_s3_bucket" "this" {
  for_each = var.bucket_config

  bucket = "${local.resource_names.bucket}-${each.key}"

  tags = merge(
    { "Name" = "${local.resource_names.bucket}-${each.key}" },
    each.value.additional_tags
  )
}

resource "aws_s3_bucket_server_side_encryption_configuration" "this" {
  for_each = { for k, v in var.bucket_config : k => v if v.encryption_enabled }
  bucket   = aws_s3_bucket.this[each.key].id

  rule {
    apply_server_side_encryption_by_default {
      sse_algorithm = "aws:kms"
    }
  }
}

resource "aws_s3_bucket_public_access_block" "this" {
  for_each = var.bucket_config
  bucket   = aws_s3_bucket.this[each.key].id

  block_public_acls       = true
  block_public_policy     = true
  ignore_public_acls      = true
  restrict_public_buckets = true
}

resource "aws_s3_bucket_versioning" "this" {
  for_each = var.bucket_config
  bucket   = aws_s3_bucket.this[each.key].id

  versioning_configuration {
    status = "Enabled"
  }
}

resource "aws_s3_bucket_logging" "this" {
  for_each      = var.bucket_config
  bucket        = aws_s3_bucket.this[each.key].id
  target_bucket = aws_s3_bucket.this[each.key].id
  target_prefix = "logs/"
}

resource "aws_s3_bucket_policy" "this" {
  for_each = var.bucket_config
  bucket   = aws_s3_bucket.this[each.key].id
  policy   = data.aws_iam_policy_document.this[each.key].json
}
`

const goodData = `data "aws_caller_identity" "current" {}

data "aws_iam_policy_document" "this" {
  for_each = var.bucket_config

  statement {
    sid     = "DenyInsecureTransport"
    effect  = "Deny"
    actions = ["s3:*"]

    principals {
      type        = "AWS"
      identifiers = [data.aws_caller_identity.current.account_id]
    }

    condition {
      test     = "Bool"
      variable = "aws:SecureTransport"
      values   = ["false"]
    }
  }

  dynamic "statement" {
    for_each = each.value.policy_statements
    content {
      sid     = statement.value.sid
      effect  = statement.value.effect
      actions = statement.value.actions
    }
  }
}
`

const goodLocals = `locals {
  resource_names = {
    bucket = "${var.client}-${var.project}-${var.environment}-s3"
  }
}
`

const goodOutputs = `output "bucket_ids" {
  description = "IDs of the created buckets"
  value       = { for k, v in aws_s3_bucket.this : k => v.id }
}

output "bucket_arns" {
  description = "ARNs of the created buckets"
  value       = { for k, v in aws_s3_bucket.this : k => v.arn }
}
`

const goodProviders = `terraform {
  required_version = ">= 1.0"

  required_providers {
    aws = {
      source  = "hashicorp/aws"
      version = ">= 5.0"
    }
  }
}

provider "aws" {}
`

const goodTfvars = `client      = "acme"
project     = "webapp"
environment = "dev"
`

const goodReadme = `# Módulo Terraform: s3

## Descripción
Buckets with secure defaults.

## Diagrama de Arquitectura
![Arquitectura](docs/architecture.png)

## Características
- Encryption

## Estructura del Módulo
See below.

## Implementación y Configuración

### Requisitos Técnicos
| Requisito | Versión |
|-----------|---------|
| Terraform | >= 1.0 |

### Configuración del Provider
provider block

### Convenciones de Nomenclatura
client-project-environment

## Parámetros de Entrada
inputs

## Estructura de Configuración
config

## Valores de Salida
outputs

## Ejemplos de Uso

### Ejemplo Básico
basic

### Ejemplo Avanzado
advanced

## Consideraciones de Seguridad
secure

## Contribución
fork

<!-- BEGIN_TF_DOCS -->
<!-- END_TF_DOCS -->
`

const goodChangelog = `# Changelog

All notable changes follow [Keep a Changelog](https://keepachangelog.com/en/1.0.0/)
and [Semantic Versioning](https://semver.org/spec/v2.0.0.html).

## [Unreleased]

## [1.1.0] - 2026-03-02
### Added
- Bucket logging

### Changed
- Defaults

### Deprecated
- Old input

### Removed
- Legacy output

### Fixed
- Tag merge

### Security
- TLS enforced

## [1.0.0] - 2026-01-15
### Added
- Initial release
`

const goodSampleReadme = `# Ejemplo de Uso - s3

## Descripción
Example.

## Estructura
files

## Uso Rápido

### 1. Preparación
cp terraform.tfvars.sample terraform.tfvars

### 2. Despliegue
terraform init
terraform plan
terraform apply

### 3. Verificación
terraform output

### 4. Limpieza
terraform destroy
`

const goodDocsConfig = `formatter: "markdown table"

output:
  file: "README.md"
  mode: inject
  template: |-
    <!-- BEGIN_TF_DOCS -->
    {{ .Content }}
    <!-- END_TF_DOCS -->

sort:
  enabled: true
  by: name
`

// goodModuleFS returns a complete module layout.
func goodModuleFS() fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	return fstest.MapFS{
		".gitignore":                     file(".terraform/\n"),
		"CHANGELOG.md":                   file(goodChangelog),
		"README.md":                      file(goodReadme),
		"data.tf":                        file(goodData),
		"locals.tf":                      file(goodLocals),
		"main.tf":                        file(goodMain),
		"outputs.tf":                     file(goodOutputs),
		"providers.tf":                   file(goodProviders),
		"variables.tf":                   file(goodVariables),
		".terraform-docs.yml":            file(goodDocsConfig),
		"sample/README.md":               file(goodSampleReadme),
		"sample/data.tf":                 file(""),
		"sample/main.tf":                 file(""),
		"sample/outputs.tf":              file(""),
		"sample/providers.tf":            file(""),
		"sample/terraform.tfvars.sample": file(goodTfvars),
	}
}

// swapLines exchanges the first lines equal to a and b.
func swapLines(text, a, b string) string {
	lines := strings.Split(text, "\n")
	ia, ib := -1, -1
	for i, l := range lines {
		if l == a && ia < 0 {
			ia = i
		}
		if l == b && ib < 0 {
			ib = i
		}
	}
	if ia >= 0 && ib >= 0 {
		lines[ia], lines[ib] = lines[ib], lines[ia]
	}
	return strings.Join(lines, "\n")
}

// anyContains reports whether some message contains substr.
func anyContains(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func countContaining(msgs []string, substr string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}
