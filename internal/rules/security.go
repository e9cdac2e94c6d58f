package rules

import (
	"regexp"
	"strings"
)

// Security checks encryption, public exposure, transport security, IAM
// policy shape, logging and network hygiene.
type Security struct {
	encryptionDefault *regexp.Regexp
	publicFlag        *regexp.Regexp
	insecureTransport *regexp.Regexp
	wildcardAction    *regexp.Regexp
	wildcardPrincipal *regexp.Regexp
	statementOpen     *regexp.Regexp
	denyEffect        *regexp.Regexp
	publicIPOnLaunch  *regexp.Regexp
	openCIDR          string
	publicBlockFlags  []string
}

// NewSecurity returns the security category.
func NewSecurity() *Security {
	return &Security{
		encryptionDefault: regexp.MustCompile(`encryption_enabled\s*=\s*optional\([^,]*,\s*true\)`),
		publicFlag:        regexp.MustCompile(`(?i)\b(\w*public\w*)\s*=\s*true\b`),
		insecureTransport: regexp.MustCompile(`(?i)\b(ssl|tls)\s*=\s*false\b`),
		wildcardAction:    regexp.MustCompile(`(?i)"?actions?"?\s*[=:]\s*\[?\s*(?:"[^"]*"\s*,\s*)*"[^"]*\*"`),
		wildcardPrincipal: regexp.MustCompile(`(?is)(?:"principal"\s*:\s*"\*")|(?:principals\s*\{[^}]*identifiers\s*=\s*\[[^\]]*"\*")`),
		statementOpen:     regexp.MustCompile(`\bstatement\s*\{`),
		denyEffect:        regexp.MustCompile(`(?i)\beffect\s*[=:]\s*"Deny"`),
		publicIPOnLaunch:  regexp.MustCompile(`map_public_ip_on_launch\s*=\s*true\b`),
		openCIDR:          "0.0.0.0/0",
		publicBlockFlags:  []string{"block_public_", "ignore_public_", "restrict_public_"},
	}
}

// Encryption checks that encryption defaults to enabled and that storage
// resources carry their encryption configuration.
func (s *Security) Encryption(variables, main string) Result {
	var c check

	if !strings.Contains(variables, "encryption_enabled") {
		c.fail("variables.tf must declare encryption_enabled")
	} else if !s.encryptionDefault.MatchString(variables) {
		c.fail("encryption_enabled must default to true: optional(bool, true)")
	}

	if hasResource(main, "aws_s3_bucket") && !hasResource(main, "aws_s3_bucket_server_side_encryption_configuration") {
		c.fail("aws_s3_bucket requires aws_s3_bucket_server_side_encryption_configuration")
	}

	for _, r := range resourcesOf(main) {
		typ := r.label(0)
		if (strings.HasPrefix(typ, "aws_rds") || typ == "aws_db_instance") && !strings.Contains(r.body, "storage_encrypted") {
			c.fail("%s must set storage_encrypted", r.address())
		}
		if typ == "aws_kms_key" && !strings.Contains(r.body, "enable_key_rotation") {
			c.warn("%s should enable key rotation", r.address())
		}
	}

	return c.result()
}

// PublicAccess checks that public access is blocked by default and flags
// permissive flags and open security group rules.
func (s *Security) PublicAccess(variables, main string) Result {
	var c check

	if !strings.Contains(variables, "block_public_access") {
		c.fail("variables.tf must declare block_public_access")
	}

	if hasResource(main, "aws_s3_bucket") && !hasResource(main, "aws_s3_bucket_public_access_block") {
		c.fail("aws_s3_bucket requires aws_s3_bucket_public_access_block")
	}

	for _, m := range s.publicFlag.FindAllStringSubmatch(main, -1) {
		if s.isBlockingFlag(m[1]) {
			continue
		}
		c.warn("%s = true may expose resources publicly", m[1])
	}

	for _, r := range resourcesOf(main) {
		if strings.HasPrefix(r.label(0), "aws_security_group") || strings.HasPrefix(r.label(0), "aws_vpc_security_group") {
			if strings.Contains(r.body, s.openCIDR) {
				c.warn("%s allows traffic from %s", r.address(), s.openCIDR)
			}
		}
	}

	return c.result()
}

func (s *Security) isBlockingFlag(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range s.publicBlockFlags {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// ForceTLS checks that buckets deny insecure transport and that nothing
// downgrades to plain HTTP or disables TLS.
func (s *Security) ForceTLS(main, data string) Result {
	var c check

	if hasResource(main, "aws_s3_bucket") && !strings.Contains(main, "force_ssl") && !strings.Contains(data, "SecureTransport") {
		c.fail("aws_s3_bucket must enforce TLS (force_ssl or an aws:SecureTransport policy)")
	}
	if strings.Contains(main, "http://") {
		c.fail("main.tf references a plain http:// endpoint")
	}
	if m := s.insecureTransport.FindString(main); m != "" {
		c.fail("insecure transport setting: %s", m)
	}
	if hasResourcePrefix(main, "aws_lb", "aws_elb", "aws_alb") && !strings.Contains(main, "HTTPS") && !strings.Contains(main, "SSL") {
		c.warn("load balancers should listen with HTTPS/SSL")
	}

	return c.result()
}

// LeastPrivilege checks the shape of IAM policy statements. Ambiguous
// findings are warnings.
func (s *Security) LeastPrivilege(variables, data string) Result {
	var c check

	if !strings.Contains(variables, "policy_statements") {
		c.warn("variables.tf should expose policy_statements for custom policies")
	} else if !strings.Contains(variables, "sid") || !strings.Contains(variables, "effect") {
		c.fail("policy_statements must declare sid and effect for every statement")
	}

	for _, d := range blocksOf(data, "data") {
		if d.label(0) == "aws_iam_policy_document" && !strings.Contains(d.body, `dynamic "statement"`) {
			c.warn("data.%s should build statements with dynamic \"statement\"", d.address())
		}
	}

	granted := s.withoutDenyStatements(data)
	if s.wildcardAction.MatchString(granted) {
		c.warn("policy grants wildcard actions (\"*\")")
	}
	if s.wildcardPrincipal.MatchString(granted) {
		c.warn("policy allows a wildcard principal (\"*\")")
	}

	return c.result()
}

// withoutDenyStatements drops statement blocks with effect = "Deny", where a
// wildcard narrows access instead of granting it.
func (s *Security) withoutDenyStatements(data string) string {
	var b strings.Builder
	last := 0
	for _, loc := range s.statementOpen.FindAllStringIndex(data, -1) {
		if loc[0] < last {
			continue
		}
		body := balanced(data, loc[1]-1)
		if s.denyEffect.MatchString(body) {
			b.WriteString(data[last:loc[0]])
			last = loc[1] - 1 + len(body)
		}
	}
	b.WriteString(data[last:])
	return b.String()
}

// LoggingMonitoring checks logging, versioning and retention settings.
func (s *Security) LoggingMonitoring(variables, main string) Result {
	var c check

	if !strings.Contains(variables, "enable_logging") {
		c.warn("variables.tf should declare enable_logging")
	}
	if !strings.Contains(variables, "enable_versioning") {
		c.warn("variables.tf should declare enable_versioning")
	}

	if hasResource(main, "aws_s3_bucket") {
		if !hasResource(main, "aws_s3_bucket_versioning") {
			c.warn("aws_s3_bucket should have aws_s3_bucket_versioning")
		}
		if !hasResource(main, "aws_s3_bucket_logging") {
			c.warn("aws_s3_bucket should have aws_s3_bucket_logging")
		}
	}

	for _, r := range resourcesOf(main, "aws_cloudtrail") {
		if !strings.Contains(r.body, "enable_logging") {
			c.fail("%s must set enable_logging", r.address())
		}
	}
	for _, r := range resourcesOf(main, "aws_cloudwatch_log_group") {
		if !strings.Contains(r.body, "retention_in_days") {
			c.warn("%s should set retention_in_days", r.address())
		}
	}

	return c.result()
}

// Network checks VPC DNS settings, public IP assignment and open network ACLs.
func (s *Security) Network(main string) Result {
	var c check

	for _, r := range resourcesOf(main, "aws_vpc") {
		if !strings.Contains(r.body, "enable_dns_hostnames") {
			c.warn("%s should set enable_dns_hostnames", r.address())
		}
		if !strings.Contains(r.body, "enable_dns_support") {
			c.warn("%s should set enable_dns_support", r.address())
		}
	}
	for _, r := range resourcesOf(main, "aws_subnet") {
		if s.publicIPOnLaunch.MatchString(r.body) {
			c.warn("%s assigns public IPs on launch", r.address())
		}
	}
	for _, r := range resourcesOf(main) {
		if strings.HasPrefix(r.label(0), "aws_network_acl") && strings.Contains(r.body, s.openCIDR) {
			c.warn("%s allows %s", r.address(), s.openCIDR)
		}
	}

	return c.result()
}
