package prompts

// WelcomeText is shown when a new chat session starts.
const WelcomeText = `👋 **Welcome to IT-Guru Assistant!**

I'm your specialized AI assistant for IT infrastructure and cybersecurity. I can help you with:

🔧 **Infrastructure & Systems**
- Network troubleshooting and configuration
- Server administration and DevOps practices
- Cloud platforms (AWS, Azure, GCP)

🛡️ **Cybersecurity**
- Security best practices and threat analysis
- Vulnerability assessments and CVE information
- Compliance and governance guidance

💡 **Real-time Information**
- Current tech news and trends
- Latest security advisories
- Up-to-date documentation from Microsoft Learn and AWS

**Try asking me:**
- "How do I set up an AWS EC2 instance?"
- "What are the latest CVE vulnerabilities?"
- "Explain Azure Active Directory best practices"
- "Compare Docker vs Kubernetes"

I use real-time sources including Microsoft Learn, AWS documentation, and current security feeds to provide you with accurate, up-to-date information.`
